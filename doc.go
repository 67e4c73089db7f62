// Package docembed turns documents into embedded chunks and searchable insights.
//
// Open wires the storage, AI provider, embedding cache, progress tracker,
// processing pipeline, insight extractor and searcher described by a Config
// into a single Engine:
//
//	cfg, err := docembed.LoadConfig("docembed.toml")
//	if err != nil { ... }
//	engine, err := docembed.Open(ctx, cfg)
//	if err != nil { ... }
//	defer engine.Close()
//
//	doc, err := engine.ProcessDocument(ctx, &core.DocumentInput{Filename: "notes.md", Content: text})
//
// The subpackages can also be used on their own.
package docembed
