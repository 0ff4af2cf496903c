package detection_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"photodock/internal/detection"
	"photodock/internal/services"
)

func TestBestFiltersLabelAndConfidence(t *testing.T) {
	dets := []detection.Detection{
		{Label: "dog", Confidence: 0.99, Box: detection.Box{Width: 10, Height: 10}},
		{Label: "person", Confidence: 0.5, Box: detection.Box{Width: 10, Height: 10}},
		{Label: "Person", Confidence: 0.7, Box: detection.Box{X: 1, Width: 10, Height: 10}},
		{Label: "person", Confidence: 0.9, Box: detection.Box{X: 2, Width: 10, Height: 10}},
		{Label: "person", Confidence: 0.95, Box: detection.Box{X: 3}},
	}
	best, ok := detection.Best(dets, "person", 0.5)
	if !ok {
		t.Fatal("expected a qualifying detection")
	}
	if best.Box.X != 2 {
		t.Fatalf("expected highest-confidence valid person box, got %+v", best)
	}

	if _, ok := detection.Best(dets[:2], "person", 0.5); ok {
		t.Fatal("confidence equal to threshold must not qualify")
	}
}

func TestBoxScale(t *testing.T) {
	b := detection.Box{X: 10, Y: 20, Width: 30, Height: 40}.Scale(0.5)
	if b.X != 20 || b.Y != 40 || b.Width != 60 || b.Height != 80 {
		t.Fatalf("unexpected scaled box %+v", b)
	}
	if b.CenterX() != 50 || b.CenterY() != 80 {
		t.Fatalf("unexpected center %v,%v", b.CenterX(), b.CenterY())
	}
}

func TestHTTPClientDetect(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"detections": []map[string]any{
				{"label": "person", "confidence": 0.8, "box": map[string]float64{"x": 1, "y": 2, "width": 3, "height": 4}},
			},
		})
	}))
	defer server.Close()

	client := detection.NewHTTPClient(server.URL+"/", "secret", detection.WithRateLimit(100, 1))
	dets, err := client.Detect(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(dets) != 1 || dets[0].Label != "person" || dets[0].Box.Height != 4 {
		t.Fatalf("unexpected detections %+v", dets)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if string(gotBody) != "img" {
		t.Fatalf("expected raw image body, got %q", gotBody)
	}
}

func TestHTTPClientErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusBadGateway, "", services.ErrDetectionUnavailable},
		{"rejected", http.StatusUnprocessableEntity, "bad image", services.ErrValidation},
		{"garbage", http.StatusOK, "{not json", services.ErrDetectionUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := detection.NewHTTPClient(server.URL, "").Detect(context.Background(), []byte("img"))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestHTTPClientUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := detection.NewHTTPClient(url, "")
	if _, err := client.Detect(context.Background(), []byte("img")); !errors.Is(err, services.ErrDetectionUnavailable) {
		t.Fatalf("expected ErrDetectionUnavailable, got %v", err)
	}
	if err := client.Ping(context.Background()); !errors.Is(err, services.ErrDetectionUnavailable) {
		t.Fatalf("expected ping failure, got %v", err)
	}
}

func TestNewFromConfigDisabled(t *testing.T) {
	if detection.NewFromConfig(nil) != nil {
		t.Fatal("expected nil detector for nil config")
	}
}
