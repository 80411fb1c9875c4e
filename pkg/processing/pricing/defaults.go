package pricing

// Default returns the built-in pricing table, in USD per million tokens.
// It is used when no pricing file is configured.
func Default() *Table {
	table, err := NewTable(defaultProviders(), LoadOptions{})
	if err != nil {
		// The built-in listing is covered by tests; failing here is a programming error.
		panic("pricing: invalid built-in table: " + err.Error())
	}
	return table
}

func defaultProviders() map[string]ProviderPricing {
	return map[string]ProviderPricing{
		"openai": {
			BatchDiscount: Float(0.5),
			Models: map[string]PriceEntry{
				"gpt-4o":      {InputPerMillion: 2.50, OutputPerMillion: 10.00, ContextWindow: 128000},
				"gpt-4o-mini": {InputPerMillion: 0.15, OutputPerMillion: 0.60, ContextWindow: 128000},
			},
		},
		"anthropic": {
			BatchDiscount:        Float(0.5),
			CacheReadMultiplier:  Float(0.10),
			CacheWriteMultiplier: Float(1.25),
			Models: map[string]PriceEntry{
				"claude-3-5-sonnet": {InputPerMillion: 3.00, OutputPerMillion: 15.00, ContextWindow: 200000},
				"claude-3-5-haiku":  {InputPerMillion: 0.80, OutputPerMillion: 4.00, ContextWindow: 200000},
				"claude-3-opus":     {InputPerMillion: 15.00, OutputPerMillion: 75.00, ContextWindow: 200000},
			},
		},
		"google": {
			Models: map[string]PriceEntry{
				"gemini-1.5-pro": {
					InputPerMillion: 1.25, OutputPerMillion: 5.00, ContextWindow: 2000000,
					LongContextThreshold: 128000, LongInputPerMillion: 2.50, LongOutputPerMillion: 10.00,
				},
				"gemini-1.5-flash": {
					InputPerMillion: 0.075, OutputPerMillion: 0.30, ContextWindow: 1000000,
					LongContextThreshold: 128000, LongInputPerMillion: 0.15, LongOutputPerMillion: 0.60,
				},
				"gemini-2.0-flash": {InputPerMillion: 0.10, OutputPerMillion: 0.40, ContextWindow: 1000000},
			},
		},
		"mistral": {
			Models: map[string]PriceEntry{
				"mistral-large-latest": {InputPerMillion: 2.00, OutputPerMillion: 6.00, ContextWindow: 128000},
				"mistral-small-latest": {InputPerMillion: 0.20, OutputPerMillion: 0.60, ContextWindow: 32000},
				"open-mistral-nemo":    {InputPerMillion: 0.15, OutputPerMillion: 0.15, ContextWindow: 128000},
			},
		},
	}
}
