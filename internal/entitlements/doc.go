// Package entitlements decodes the per-application entitlements manifest
// (the "app config" blob a deploy carries alongside its image) and exposes it
// as a tagged union: recognized variants are network, video, audio, and
// bluetooth. Unknown variants are preserved on decode but ignored by every
// consumer, so older agents tolerate newer manifests.
package entitlements
