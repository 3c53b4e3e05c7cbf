// Package textutil normalizes tag strings for fingerprinting and matching.
// The same normalization feeds both the metadata hash and the fuzzy matcher,
// so the rules here must stay deterministic and idempotent.
package textutil
