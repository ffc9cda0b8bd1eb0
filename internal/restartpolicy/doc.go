// Package restartpolicy models the restart-policy tagged union (default,
// unless-stopped, no, on-failure(N)) and its translation to and from the
// container label the runtime's restart manager reads.
package restartpolicy
