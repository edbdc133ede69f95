package model

import (
	"encoding/json"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/domain/types"
)

var (
	// ErrTagMalformedPayload marks a webhook body that cannot be decoded for its event type
	ErrTagMalformedPayload = goerr.NewTag("malformed_payload")
)

// WebhookRequest is the read-only view of one inbound webhook delivery
type WebhookRequest struct {
	EventType  string    // Retrieved from X-GitHub-Event header, may be empty
	DeliveryID string    // Retrieved from X-GitHub-Delivery header
	ReceivedAt time.Time // Time when the request was received
	Payload    []byte    // Raw JSON payload
	Event      Event     // Payload decoded once at the HTTP boundary
}

// AuthResult is the verdict of the webhook signature check
type AuthResult int

const (
	AuthMissingSignature AuthResult = iota
	AuthInvalidSignature
	AuthAuthenticated
)

func (r AuthResult) String() string {
	switch r {
	case AuthAuthenticated:
		return "authenticated"
	case AuthInvalidSignature:
		return "invalid_signature"
	default:
		return "missing_signature"
	}
}

// Event is a decoded webhook payload. The concrete type is one of
// *PingEvent, *InstallationEvent or *GenericEvent.
type Event interface {
	EventName() string
}

// PingEvent is sent by GitHub when a webhook is first configured
type PingEvent struct {
	Zen    string
	HookID int64
}

func (e *PingEvent) EventName() string { return types.EventPing }

// InstallationAction is the action field of an installation event
type InstallationAction string

const (
	InstallationActionCreated InstallationAction = "created"
	InstallationActionDeleted InstallationAction = "deleted"
)

// InstallationEvent is sent when the GitHub App is installed, uninstalled,
// suspended and so on.
type InstallationEvent struct {
	Action       InstallationAction
	Installation *github.Installation
}

func (e *InstallationEvent) EventName() string { return types.EventInstallation }

// GenericEvent carries the envelope fields of any other event. The raw
// payload stays on WebhookRequest for collaborators that need more.
type GenericEvent struct {
	Name           string
	Action         string
	InstallationID int64
	Repository     string // full_name, e.g. "octo-org/octo-repo"
}

func (e *GenericEvent) EventName() string { return e.Name }

// Selector returns "name.action", or just the name when there is no action
func (e *GenericEvent) Selector() string {
	if e.Action == "" {
		return e.Name
	}
	return e.Name + "." + e.Action
}

type genericEnvelope struct {
	Action       string `json:"action"`
	Installation *struct {
		ID int64 `json:"id"`
	} `json:"installation"`
	Repository *struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// DecodeEvent decodes a webhook payload into the event variant selected by
// eventType. An unknown or empty eventType yields a *GenericEvent.
func DecodeEvent(eventType string, payload []byte) (Event, error) {
	switch eventType {
	case types.EventPing:
		parsed, err := github.ParseWebHook(eventType, payload)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to decode ping payload", goerr.T(ErrTagMalformedPayload))
		}
		ping, ok := parsed.(*github.PingEvent)
		if !ok {
			return nil, goerr.New("unexpected ping payload type", goerr.T(ErrTagMalformedPayload))
		}
		return &PingEvent{
			Zen:    ping.GetZen(),
			HookID: ping.GetHookID(),
		}, nil

	case types.EventInstallation:
		parsed, err := github.ParseWebHook(eventType, payload)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to decode installation payload", goerr.T(ErrTagMalformedPayload))
		}
		ev, ok := parsed.(*github.InstallationEvent)
		if !ok {
			return nil, goerr.New("unexpected installation payload type", goerr.T(ErrTagMalformedPayload))
		}
		if ev.Installation == nil {
			return nil, goerr.New("installation payload has no installation object",
				goerr.V("action", ev.GetAction()),
				goerr.T(ErrTagMalformedPayload),
			)
		}
		return &InstallationEvent{
			Action:       InstallationAction(ev.GetAction()),
			Installation: ev.Installation,
		}, nil

	default:
		event := &GenericEvent{Name: eventType}
		if len(payload) == 0 {
			return event, nil
		}

		var env genericEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return nil, goerr.Wrap(err, "failed to decode webhook payload",
				goerr.V("event_type", eventType),
				goerr.T(ErrTagMalformedPayload),
			)
		}
		event.Action = env.Action
		if env.Installation != nil {
			event.InstallationID = env.Installation.ID
		}
		if env.Repository != nil {
			event.Repository = env.Repository.FullName
		}
		return event, nil
	}
}

// DispatchOutcome is the terminal state reached by the event dispatcher for one request
type DispatchOutcome string

const (
	OutcomeRejectedMissingAuth     DispatchOutcome = "rejected_missing_auth"
	OutcomeRejectedUnauthenticated DispatchOutcome = "rejected_unauthenticated"
	OutcomePingHandled             DispatchOutcome = "ping_handled"
	OutcomeInstallationCreated     DispatchOutcome = "installation_created"
	OutcomeInstallationDeleted     DispatchOutcome = "installation_deleted"
	OutcomeInstallationIgnored     DispatchOutcome = "installation_ignored"
	OutcomeDelegated               DispatchOutcome = "delegated"
)
