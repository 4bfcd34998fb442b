// Package ollama is a client for the Ollama HTTP API.
//
// A Client is built once and shared; every method takes a context and is
// safe for concurrent use:
//
//	client, err := ollama.New(ollama.Config{Host: "http://127.0.0.1:11434"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	resp, err := client.Generate(ctx, &ollama.GenerateRequest{
//		Model:  "llama3.2",
//		Prompt: "Why is the sky blue?",
//	})
//
// Streaming variants return a Stream that yields one decoded record per
// Recv until io.EOF:
//
//	stream, err := client.GenerateStream(ctx, req)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer stream.Close()
//	for {
//		chunk, err := stream.Recv()
//		if errors.Is(err, io.EOF) {
//			break
//		}
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Print(chunk.Response)
//	}
//
// Streaming chat responses arrive as fragments; ChatAccumulator rebuilds
// the final message, including tool calls whose names and arguments were
// split across chunks.
package ollama
