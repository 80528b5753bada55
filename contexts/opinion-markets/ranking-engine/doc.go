// Package rankingengine implements the weekly opinion-ranking engine inside
// the opinion-markets context.
//
// The module owns ranked-ballot ingestion with reputation-weighted stakes,
// live score/rank/consensus aggregation, the weekly resolution cycle
// (accuracy scoring, reward-pool distribution, reputation updates, next-round
// spawning), and resolution event production through an outbox-backed relay.
// Business rules live in the domain and application layers; infrastructure
// sits behind ports and adapters.
package rankingengine
