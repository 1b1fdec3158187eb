// Package usermsg maps update pipeline errors to user-facing guidance. Rules
// are evaluated in order against the error's type; the first match wins, with
// a generic fallback at the end.
package usermsg

import (
	"errors"

	"github.com/keyfold/keyfold/fetcher"
	"github.com/keyfold/keyfold/manifest"
	"github.com/keyfold/keyfold/updater"
)

// Rule pairs an error predicate with the message shown when it matches.
type Rule struct {
	Matches func(error) bool
	Message func(error) string
}

// Dispatcher resolves errors to messages. The zero value is not usable; build
// one with NewDispatcher or assemble custom rules in order.
type Dispatcher struct {
	rules    []Rule
	fallback string
}

func New(rules []Rule, fallback string) *Dispatcher {
	return &Dispatcher{rules: rules, fallback: fallback}
}

// NewDispatcher builds the default ruleset. Order matters: the legacy TLS
// condition must be recognized before the generic transport condition, since
// the two demand different user action.
func NewDispatcher() *Dispatcher {
	return New([]Rule{
		{
			Matches: func(err error) bool {
				var target *fetcher.LegacyTLSError
				return errors.As(err, &target)
			},
			Message: func(error) string {
				return "Your operating system is too old to connect securely to the update server. Please update your OS to check for updates."
			},
		},
		{
			Matches: func(err error) bool {
				var target *manifest.VerificationError
				return errors.As(err, &target)
			},
			Message: func(error) string {
				return "The update information could not be verified. Please try again later."
			},
		},
		{
			Matches: func(err error) bool {
				var target *updater.DownloadError
				return errors.As(err, &target)
			},
			Message: func(error) string {
				return "The update could not be downloaded. Please check your connection and try again."
			},
		},
		{
			Matches: func(err error) bool {
				var target *fetcher.TransportError
				return errors.As(err, &target)
			},
			Message: func(error) string {
				return "The update server could not be reached. Please check your connection and try again."
			},
		},
	}, "Checking for updates failed. Please try again later.")
}

// Message returns the guidance for err, falling through the rules in order.
func (d *Dispatcher) Message(err error) string {
	for _, rule := range d.rules {
		if rule.Matches(err) {
			return rule.Message(err)
		}
	}
	return d.fallback
}
