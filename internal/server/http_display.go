package server

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// writeServerInfo prints the route table and the active limits
func (s *Server) writeServerInfo(out io.Writer) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Available endpoints:")
	for _, rt := range s.routeTable() {
		note := ""
		if rt.access != public && len(s.APIKeys) > 0 {
			note = "(requires API key)"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", rt.pattern, rt.description, note)
	}
	_ = tw.Flush()

	if len(s.APIKeys) > 0 {
		fmt.Fprintf(out, "API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
	} else {
		fmt.Fprintln(out, "API authentication: DISABLED (no API keys configured)")
		fmt.Fprintln(out, "WARNING: API endpoints are publicly accessible!")
	}

	if s.MaxRequestSize > 0 {
		fmt.Fprintf(out, "Request size limit: %.1f MB\n", float64(s.MaxRequestSize)/(1<<20))
	} else {
		fmt.Fprintln(out, "Request size limit: DISABLED")
	}
	if s.MaxFileSize > 0 {
		fmt.Fprintf(out, "Upload size limit: %.1f MB\n", float64(s.MaxFileSize)/(1<<20))
	}

	switch {
	case s.RateLimit == nil || !s.RateLimit.Enabled:
		fmt.Fprintln(out, "Rate limiting: DISABLED")
	default:
		fmt.Fprintf(out, "Rate limiting: ENABLED (%d requests/min, burst %d, by api key: %t, by ip: %t)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
	}
}
