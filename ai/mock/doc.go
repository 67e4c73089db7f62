// Package mock provides test doubles for the ai package interfaces.
//
// Constructors return concrete types so tests can inject behavior and assert
// on call counts:
//
//	embedder := mock.NewMockEmbedder()
//	embedder.Dimensions = 8
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, ai.NewProviderError("mock", ai.KindQuotaExceeded, errors.New("no credit"))
//	}
//
//	// Check call counts
//	count := embedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockGenerator: Returns a JSON array with one insight per prompt sentence
//   - MockProvider: Aggregates mock embedder and generator
//
// All mocks are safe for concurrent use.
package mock
