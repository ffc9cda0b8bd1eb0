// Package deploy drives the Docker/CLI run-container stream: the
// waitingForHeader -> acceptingChunks -> running state machine described by
// the agent's run-container protocol. Each Handler is bound to one stream
// and discarded when the stream closes.
package deploy
