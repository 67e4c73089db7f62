// Package gemini implements the ai interfaces on Google's Gemini API using
// generative-ai-go.
//
// Errors are classified from the gRPC status or googleapi HTTP status the
// client library returns:
//
//	provider, err := gemini.NewProvider(ctx, ai.NewConfig(
//	    ai.WithProvider(ai.ProviderGemini),
//	    ai.WithAPIKey(os.Getenv("GEMINI_API_KEY")),
//	    ai.WithEmbeddingModel("text-embedding-004"),
//	    ai.WithGeneratorModel("gemini-1.5-flash"),
//	    ai.WithDimensions(768),
//	))
package gemini
