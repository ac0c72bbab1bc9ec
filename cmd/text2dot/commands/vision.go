package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/psycho-baller/text2dot/pkg/vision"
)

var visionCmd = &cobra.Command{
	Use:   "vision",
	Short: "Image description proxy",
}

var visionServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST /api/extract_image",
	Long: `Proxy image description requests to a vision chat completions API.

The API key and base URL come from the selected context (api_key, base_url)
or the HYPERBOLIC_API_KEY environment variable.

Examples:
  text2dot vision serve --addr :3000
  curl -d '{"content":"https://example.com/dog.jpg"}' localhost:3000/api/extract_image`,
	Args: cobra.NoArgs,
	RunE: runVisionServe,
}

func init() {
	visionServeCmd.Flags().String("addr", ":3000", "listen address")
	visionServeCmd.Flags().String("model", vision.DefaultModel, "model name")
	visionServeCmd.Flags().String("prompt", vision.DefaultPrompt, "prompt sent with each image")
	visionCmd.AddCommand(visionServeCmd)
}

func runVisionServe(cmd *cobra.Command, args []string) error {
	ctx, err := getContext()
	if err != nil {
		return err
	}
	apiKey := ctx.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("HYPERBOLIC_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("api key is required. Set api_key in a context or HYPERBOLIC_API_KEY")
	}
	addr, _ := cmd.Flags().GetString("addr")
	model, _ := cmd.Flags().GetString("model")
	prompt, _ := cmd.Flags().GetString("prompt")

	h := vision.NewHandler(vision.Config{
		APIKey:  apiKey,
		BaseURL: ctx.BaseURL,
		Model:   model,
		Prompt:  prompt,
	})
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	slog.Info("vision proxy serving", "addr", ln.Addr().String(), "model", model)

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	srv := &http.Server{Handler: h.Mux()}
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
