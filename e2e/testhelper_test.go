package e2e

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hibiken/asynq"

	"github.com/storytailer/api/internal/client"
	"github.com/storytailer/api/internal/handler"
	"github.com/storytailer/api/internal/middleware"
	"github.com/storytailer/api/internal/model"
	"github.com/storytailer/api/internal/repository"
	"github.com/storytailer/api/internal/service"
	"github.com/storytailer/api/internal/worker"
)

const testJWTSecret = "test-secret-for-e2e"

// stubVision emulates the vision/text models with canned outputs.
type stubVision struct {
	restricted bool
}

func (s stubVision) ClassifyContent(ctx context.Context, image []byte, system, user string) (*model.ContentVerdict, error) {
	if s.restricted {
		return &model.ContentVerdict{Summary: "explicit imagery visible", IsRestricted: true}, nil
	}
	return &model.ContentVerdict{Summary: "everyday scene"}, nil
}

func (s stubVision) DescribeImage(ctx context.Context, image []byte, system, user string) (*model.ImageInsights, error) {
	return &model.ImageInsights{Title: "Harbor at Dusk", Setting: "small fishing port"}, nil
}

func (s stubVision) ComposeStory(ctx context.Context, system, user string, maxTokens int) (string, error) {
	return "The boats came home before the storm.", nil
}

// stubSynth renders a fixed-duration WAV regardless of input.
type stubSynth struct {
	seconds int
}

func (s stubSynth) Synthesize(ctx context.Context, text string, params client.SynthesisParams) ([]byte, error) {
	return pcmWAV(22050, 22050*s.seconds), nil
}

func pcmWAV(sampleRate, frames int) []byte {
	const blockAlign = 2
	dataSize := frames * blockAlign

	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataSize))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sampleRate))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sampleRate*blockAlign))
	buf = binary.LittleEndian.AppendUint16(buf, blockAlign)
	buf = binary.LittleEndian.AppendUint16(buf, 16)
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))
	buf = append(buf, make([]byte, dataSize)...)
	return buf
}

// inlineDispatcher runs the worker synchronously instead of going through
// Redis, so a Create followed by a Get observes the finished pipeline.
type inlineDispatcher struct {
	worker *worker.StoryWorker
}

func (d *inlineDispatcher) Dispatch(ctx context.Context, storyID string, req *model.StoryGenerationRequest) error {
	payload, err := json.Marshal(service.StoryTaskPayload{StoryID: storyID, Request: *req})
	if err != nil {
		return err
	}
	return d.worker.ProcessTask(ctx, asynq.NewTask(service.TaskTypeGenerateStory, payload))
}

type testApp struct {
	app   *fiber.App
	blobs *client.MemoryStore
}

// setupApp builds the Fiber app the way main does, on in-memory storage and
// stub engines, with the queue replaced by inline execution.
func setupApp(t *testing.T, vision stubVision, synth stubSynth) *testApp {
	t.Helper()

	repo := repository.NewMemoryStoryRepository()
	blobs := client.NewMemoryStore()
	validate := validator.New()

	dispatcher := &inlineDispatcher{}
	storyService := service.NewStoryService(
		repo,
		blobs,
		service.NewGenerator(vision),
		service.NewSynthesizer(synth, blobs),
		dispatcher,
		nil,
	)
	dispatcher.worker = worker.NewStoryWorker(storyService)

	storyHandler := handler.NewStoryHandler(storyService, blobs, validate)
	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)

	app := fiber.New(fiber.Config{BodyLimit: 25 * 1024 * 1024})

	app.Get("/health", handler.Health)

	api := app.Group("/api", authMiddleware.Authenticate())
	api.Post("/stories/generate", storyHandler.Generate)
	api.Get("/stories", storyHandler.List)
	api.Get("/stories/:storyId", storyHandler.Get)
	api.Delete("/stories/:storyId", storyHandler.Delete)
	api.Get("/files/*", storyHandler.File)

	return &testApp{app: app, blobs: blobs}
}

func generateToken(t *testing.T) string {
	t.Helper()
	claims := middleware.UserClaims{
		UserID: "test-user-123",
		Email:  "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "storytailer-api",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request, authenticated bool) *http.Response {
	t.Helper()
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+generateToken(t))
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func generateRequest(t *testing.T, reqJSON string) *http.Request {
	t.Helper()

	var img bytes.Buffer
	if err := jpeg.Encode(&img, image.NewRGBA(image.Rect(0, 0, 16, 16)), nil); err != nil {
		t.Fatalf("encode image: %v", err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("request", reqJSON); err != nil {
		t.Fatalf("write request field: %v", err)
	}
	fw, err := w.CreateFormFile("image", "photo.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(img.Bytes()); err != nil {
		t.Fatalf("write image: %v", err)
	}
	w.Close()

	req, err := http.NewRequest(http.MethodPost, "/api/stories/generate", &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func parseJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		t.Fatalf("parse JSON: %v\nbody: %s", err, b)
	}
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
