// Package playbackcache provides a fixed-capacity store for rendered
// playback elements.
//
// Eviction is strictly insertion-ordered (FIFO): reading an entry does
// not refresh it, and overwriting an existing key keeps the entry's
// original position. The capacity is fixed at construction. Both
// choices are deliberate; do not upgrade the policy to LRU.
package playbackcache
