package llm

import "fmt"

// DefaultFallbacks pairs each provider with the single alternate tried when
// it fails.
var DefaultFallbacks = map[string]string{
	ProviderOpenRouter: ProviderMistral,
	ProviderMistral:    ProviderOpenRouter,
	ProviderOpenAI:     ProviderAnthropic,
	ProviderAnthropic:  ProviderOpenAI,
	ProviderOllama:     ProviderOpenRouter,
}

// FallbackError reports that a provider and its alternate both failed.
type FallbackError struct {
	Primary      string
	PrimaryErr   error
	Alternate    string
	AlternateErr error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("all providers failed: %s: %v; %s: %v", e.Primary, e.PrimaryErr, e.Alternate, e.AlternateErr)
}

func (e *FallbackError) Unwrap() []error {
	return []error{ErrProviderUnavailable, e.PrimaryErr, e.AlternateErr}
}
