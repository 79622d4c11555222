package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/docqa/pkg/llm/provider"
)

// ProviderSpecs builds the language model specs in the configured priority
// order. Specs without a credential are kept; the selector skips them.
func ProviderSpecs(v *viper.Viper) ([]provider.Spec, error) {
	order := provider.DefaultOrder
	if names := splitList(v.GetString("llm.order")); len(names) > 0 {
		var err error
		if order, err = provider.ParseOrder(names); err != nil {
			return nil, err
		}
	}

	timeout := v.GetDuration("llm.timeout")
	if timeout < 0 {
		return nil, fmt.Errorf("invalid llm.timeout %s", v.GetString("llm.timeout"))
	}

	specs := make([]provider.Spec, 0, len(order))
	for _, kind := range order {
		prefix := "llm." + string(kind) + "."
		specs = append(specs, provider.Spec{
			Kind:    kind,
			APIKey:  strings.TrimSpace(v.GetString(prefix + "api_key")),
			Model:   v.GetString(prefix + "model"),
			BaseURL: v.GetString(prefix + "base_url"),
			Timeout: timeout,
		})
	}
	return specs, nil
}

// Brokers splits the comma separated events.brokers value.
func Brokers(v *viper.Viper) []string {
	return splitList(v.GetString("events.brokers"))
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
