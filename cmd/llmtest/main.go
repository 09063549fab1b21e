package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/repairit-app/repairit-platform/internal/diagnostic"
	"github.com/repairit-app/repairit-platform/pkg/logging"
)

// Smoke test for the expert invocation path: drives a short diagnostic
// exchange against the live Gemini API, fallback handling included.
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY not set")
	}
	modelID := os.Getenv("GEMINI_MODEL_ID")
	if modelID == "" {
		modelID = "gemini-1.5-flash-8b"
	}

	client, err := diagnostic.NewGeminiExpertClient(ctx, apiKey, modelID)
	if err != nil {
		log.Fatalf("failed to create gemini client: %v", err)
	}
	defer client.Close()

	invoker := diagnostic.NewInvoker(client, logging.New("debug"))

	history := []diagnostic.ChatTurn{
		{Role: diagnostic.RoleUser, Text: "hi"},
		{Role: diagnostic.RoleExpert, Text: "What's the device you need help with?"},
		{Role: diagnostic.RoleUser, Text: "Laptop"},
		{Role: diagnostic.RoleExpert, Text: "What's the damage or issue?"},
	}

	fmt.Println("Expert invocation test")
	fmt.Println("Model:", modelID)

	start := time.Now()
	reply, err := invoker.Invoke(ctx, diagnostic.ExpertRequest{
		System:  diagnostic.SystemInstruction,
		History: history,
		Prompt:  "Screen cracked after a drop, display flickers",
	})
	elapsed := time.Since(start)
	if err != nil {
		log.Fatalf("invoke failed: %v", err)
	}

	fmt.Printf("Reply (%v):\n%s\n", elapsed.Round(time.Millisecond), reply.Text)
	if reply.Fallback {
		fmt.Printf("Served fallback text (reason: %s)\n", reply.FallbackReason)
	}
	if diagnostic.ContainsBillingDirective(reply.Text) {
		fmt.Println("Billing directive detected, extracted total:", diagnostic.ExtractTotal(reply.Text))
	}
}
