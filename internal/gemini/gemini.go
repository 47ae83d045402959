package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/skyscope/skyscope/internal/models"
)

// Options configures the Gemini detector
type Options struct {
	APIKey      string
	Model       string
	Temperature float64
	Prompt      string
	Labels      []string
}

// Gemini detects constellations with a Gemini vision model
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	labels []string
	index  map[string]int
	prompt string
}

// New returns a new Gemini detector. The label vocabulary is fixed here.
func New(ctx context.Context, opts Options) (*Gemini, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	if len(opts.Labels) == 0 {
		return nil, fmt.Errorf("no labels configured for gemini")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	model := client.GenerativeModel(opts.Model)
	model.SetTemperature(float32(opts.Temperature))
	model.ResponseMIMEType = "application/json"

	g := &Gemini{
		client: client,
		model:  model,
		labels: append([]string(nil), opts.Labels...),
		index:  make(map[string]int, len(opts.Labels)),
		prompt: opts.Prompt,
	}
	for i, label := range g.labels {
		g.index[label] = i
	}
	if g.prompt == "" {
		g.prompt = defaultPrompt(g.labels)
	}
	return g, nil
}

// Labels returns the configured vocabulary
func (g *Gemini) Labels() []string {
	return g.labels
}

// Close releases the client
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Detect asks the model for boxes around every constellation it can find.
func (g *Gemini) Detect(ctx context.Context, frame models.Frame) ([]models.RawDetection, error) {
	format, data, err := uploadable(frame)
	if err != nil {
		return nil, err
	}

	resp, err := g.model.GenerateContent(ctx, genai.ImageData(format, data), genai.Text(g.prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("empty content returned from Gemini")
	}

	txt, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected response format from Gemini")
	}

	return parseBoxes(string(txt), frame.Width(), frame.Height(), g.index)
}

// uploadable returns image bytes in a format the API accepts, re-encoding as PNG if needed.
func uploadable(frame models.Frame) (string, []byte, error) {
	switch frame.Format {
	case "jpeg", "png", "webp":
		return frame.Format, frame.Data, nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame.Image); err != nil {
		return "", nil, fmt.Errorf("failed to re-encode %s as png: %w", frame.Format, err)
	}
	return "png", buf.Bytes(), nil
}

func defaultPrompt(labels []string) string {
	return fmt.Sprintf(`Find the constellations in this night sky photograph.
Only use these labels: %s.
Return a JSON array. Each element must have "label", "confidence" between 0 and 1,
and "box_2d" as [ymin, xmin, ymax, xmax] normalized to 0-1000.
Return [] if none are visible.`, strings.Join(labels, ", "))
}

type box struct {
	Label      string     `json:"label"`
	Confidence *float64   `json:"confidence"`
	Box2D      [4]float64 `json:"box_2d"`
}

// parseBoxes converts the model's normalized boxes to pixel-space detections.
// Labels outside the vocabulary are dropped; a missing confidence counts as 1.
func parseBoxes(text string, width, height int, index map[string]int) ([]models.RawDetection, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var boxes []box
	if err := json.Unmarshal([]byte(text), &boxes); err != nil {
		return nil, fmt.Errorf("failed to parse gemini boxes: %w", err)
	}

	w, h := float64(width), float64(height)
	raw := make([]models.RawDetection, 0, len(boxes))
	for _, b := range boxes {
		idx, ok := index[strings.ReplaceAll(strings.ToLower(strings.TrimSpace(b.Label)), " ", "_")]
		if !ok {
			continue
		}
		conf := 1.0
		if b.Confidence != nil {
			conf = clamp(*b.Confidence, 0, 1)
		}
		ymin, xmin, ymax, xmax := b.Box2D[0], b.Box2D[1], b.Box2D[2], b.Box2D[3]
		raw = append(raw, models.RawDetection{
			BBox: [4]float64{
				clamp(xmin, 0, 1000) / 1000 * w,
				clamp(ymin, 0, 1000) / 1000 * h,
				clamp(xmax, 0, 1000) / 1000 * w,
				clamp(ymax, 0, 1000) / 1000 * h,
			},
			Confidence: conf,
			ClassIndex: idx,
		})
	}
	return raw, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
