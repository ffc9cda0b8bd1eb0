// Parses flags and configures logging for the edged daemon.
//
// The daemon accepts the following flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Enable verbose output.
//	-d, --debug     Enable debug output.
//	    --listen    TCP address for the deploy RPC surface.
//	    --admin-socket   Unix admin socket path.
//	    --containerd-address     Containerd socket address.
//	    --containerd-namespace  Containerd namespace.
//	    --docker-host   Docker engine API address for the fallback runtime.
//	    --metrics-addr  HTTP address for /metrics, /healthz, /readyz.
//
// Flags override build-time defaults set via linker flags. After parsing, the
// global logger is reconfigured to reflect the final level before the server
// starts.
package cli
