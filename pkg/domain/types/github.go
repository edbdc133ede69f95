package types

// GitHub webhook request headers
const (
	HeaderEvent        = "X-GitHub-Event"
	HeaderDelivery     = "X-GitHub-Delivery"
	HeaderSignature256 = "X-Hub-Signature-256"
	HeaderSignature    = "X-Hub-Signature"
)

// GitHub event names handled explicitly by the dispatcher
const (
	EventPing         = "ping"
	EventInstallation = "installation"
	EventPush         = "push"
)
