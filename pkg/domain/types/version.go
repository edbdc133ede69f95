package types

// Version is overwritten at build time via -ldflags.
var Version = "dev"

// ServiceName is reported by health and ping responses.
const ServiceName = "hookwarden"
