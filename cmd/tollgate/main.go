// Tollgate admits LLM requests through per-provider token buckets and
// prices their token usage.
//
// Usage:
//
//	# Price a single request
//	tollgate cost --provider openai --model gpt-4o --input-tokens 10000 --output-tokens 2000
//
//	# Compare providers and show the cheapest
//	tollgate compare --option openai=gpt-4o --option anthropic=claude-3-5-sonnet --input-tokens 10000 --output-tokens 2000
//
//	# Project a monthly bill
//	tollgate estimate --provider openai --model gpt-4o --daily 5000 --avg-input 1200 --avg-output 300
//
//	# Exercise a configured limiter
//	tollgate simulate --limiter openai --requests 100 --concurrency 8
//
//	# Serve metrics and persist snapshots
//	tollgate serve --config tollgate.yaml
package main

func main() {
	Execute()
}
