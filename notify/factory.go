package notify

import "fmt"

// NewNotifier builds the notifier for a provider from its decrypted
// credential secret set. ProviderNone and the empty provider return a
// nil Notifier without error so callers treat an unset channel
// uniformly.
func NewNotifier(provider ProviderType, credentials map[string]string) (Notifier, error) {
	switch provider {
	case ProviderGitHub:
		return NewGitHubNotifier(credentials)
	case ProviderWebhook:
		return NewWebhookNotifier(credentials)
	case ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidProvider, provider)
	}
}
