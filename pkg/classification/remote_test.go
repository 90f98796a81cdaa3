package classification

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// avocadoResponse builds a well-formed service payload with ripe_stage_1
// on top, using the raw training vocabulary.
func avocadoResponse() remoteClassifyResponse {
	return remoteClassifyResponse{
		Success:        true,
		ProduceType:    "avocado",
		PredictedClass: "avocado_ripe1",
		PredictedLabel: "Ripe (Stage 1)",
		Confidence:     0.85,
		AllPredictions: []remotePrediction{
			{ClassName: "avocado_underripe", ClassLabel: "Underripe", Confidence: 0.02},
			{ClassName: "avocado_breaking", ClassLabel: "Breaking", Confidence: 0.05},
			{ClassName: "avocado_ripe1", ClassLabel: "Ripe (Stage 1)", Confidence: 0.85},
			{ClassName: "avocado_ripe2", ClassLabel: "Ripe (Stage 2)", Confidence: 0.06},
			{ClassName: "avocado_overripe", ClassLabel: "Overripe", Confidence: 0.02},
		},
	}
}

// classifyStub serves canned /classify and /health responses and records
// the last classify request it saw.
type classifyStub struct {
	server       *httptest.Server
	lastRequest  *remoteClassifyRequest
	healthStatus int
	healthCalls  atomic.Int32
	respond      func(w http.ResponseWriter)
}

func newClassifyStub() *classifyStub {
	stub := &classifyStub{healthStatus: http.StatusOK}
	stub.respond = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		Expect(json.NewEncoder(w).Encode(avocadoResponse())).To(Succeed())
	}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			stub.healthCalls.Add(1)
			w.WriteHeader(stub.healthStatus)
		case "/classify":
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))
			var req remoteClassifyRequest
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
			stub.lastRequest = &req
			stub.respond(w)
		default:
			http.NotFound(w, r)
		}
	}))
	DeferCleanup(stub.server.Close)
	return stub
}

func (s *classifyStub) respondJSON(v interface{}) {
	s.respond = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		Expect(json.NewEncoder(w).Encode(v)).To(Succeed())
	}
}

func (s *classifyStub) respondRaw(status int, body string) {
	s.respond = func(w http.ResponseWriter) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

var _ = Describe("remote backend", func() {
	var (
		registry *taxonomy.Registry
		ctx      context.Context
		stub     *classifyStub
		backend  *RemoteBackend
	)

	BeforeEach(func() {
		registry = taxonomy.Default()
		ctx = context.Background()
		stub = newClassifyStub()
		backend = NewRemoteBackend(registry, stub.server.URL)
	})

	Describe("loading", func() {
		It("binds a known kind", func() {
			Expect(backend.Load(ctx, taxonomy.KindAvocado)).To(Succeed())
			Expect(backend.Loaded()).To(BeTrue())
			Expect(backend.Kind()).To(Equal(taxonomy.KindAvocado))
			Expect(stub.healthCalls.Load()).To(Equal(int32(1)))
		})

		It("rejects unknown kinds", func() {
			err := backend.Load(ctx, taxonomy.ProduceKind("dragonfruit"))
			Expect(err).To(MatchError(ErrLoadFailed))
			Expect(err).To(MatchError(taxonomy.ErrUnknownKind))
			Expect(backend.Loaded()).To(BeFalse())
		})

		It("tolerates a failing health probe", func() {
			stub.healthStatus = http.StatusInternalServerError
			Expect(backend.Load(ctx, taxonomy.KindAvocado)).To(Succeed())
			Expect(backend.Loaded()).To(BeTrue())
		})

		It("skips the probe when disabled", func() {
			backend = NewRemoteBackend(registry, stub.server.URL, WithHealthCheck(false))
			Expect(backend.Load(ctx, taxonomy.KindAvocado)).To(Succeed())
			Expect(stub.healthCalls.Load()).To(BeZero())
		})

		It("is idempotent for the bound kind", func() {
			Expect(backend.Load(ctx, taxonomy.KindAvocado)).To(Succeed())
			Expect(backend.Load(ctx, taxonomy.KindAvocado)).To(Succeed())
			Expect(stub.healthCalls.Load()).To(Equal(int32(1)))
		})
	})

	Describe("classifying", func() {
		It("rejects Classify before Load", func() {
			_, err := backend.Classify(ctx, testImagePNG(color.RGBA{A: 255}))
			Expect(err).To(MatchError(ErrNotLoaded))
		})

		Context("when bound to avocado", func() {
			BeforeEach(func() {
				Expect(backend.Load(ctx, taxonomy.KindAvocado)).To(Succeed())
			})

			It("ships the image as a data URL with the produce type", func() {
				img := testImagePNG(color.RGBA{R: 60, G: 120, B: 40, A: 255})
				_, err := backend.Classify(ctx, img)
				Expect(err).ToNot(HaveOccurred())

				Expect(stub.lastRequest).ToNot(BeNil())
				Expect(stub.lastRequest.ProduceType).To(Equal("avocado"))
				Expect(stub.lastRequest.Image).To(HavePrefix("data:image/png;base64,"))

				encoded := stub.lastRequest.Image[strings.Index(stub.lastRequest.Image, ",")+1:]
				decoded, decodeErr := base64.StdEncoding.DecodeString(encoded)
				Expect(decodeErr).ToNot(HaveOccurred())
				// Small images cross the wire unresized.
				Expect(decoded).To(Equal(img))
			})

			It("ships undecodable bytes untouched", func() {
				raw := []byte("not an image at all")
				_, err := backend.Classify(ctx, raw)
				Expect(err).ToNot(HaveOccurred())

				encoded := stub.lastRequest.Image[strings.Index(stub.lastRequest.Image, ",")+1:]
				decoded, decodeErr := base64.StdEncoding.DecodeString(encoded)
				Expect(decodeErr).ToNot(HaveOccurred())
				Expect(decoded).To(Equal(raw))
			})

			It("maps the raw vocabulary onto canonical labels", func() {
				result, err := backend.Classify(ctx, testImagePNG(color.RGBA{A: 255}))
				Expect(err).ToNot(HaveOccurred())

				Expect(result.ProduceKind).To(Equal(taxonomy.KindAvocado))
				Expect(result.TopLabel).To(Equal("ripe_stage_1"))
				Expect(result.TopConfidence).To(BeNumerically("~", 0.85, 1e-9))
				Expect(result.Predictions).To(HaveLen(5))
				for i := 1; i < len(result.Predictions); i++ {
					Expect(result.Predictions[i].Confidence).To(BeNumerically("<=", result.Predictions[i-1].Confidence))
				}
			})

			It("accepts canonical label names too", func() {
				resp := avocadoResponse()
				resp.AllPredictions = []remotePrediction{
					{ClassName: "underripe", Confidence: 0.02},
					{ClassName: "breaking", Confidence: 0.05},
					{ClassName: "ripe_stage_1", Confidence: 0.85},
					{ClassName: "ripe_stage_2", Confidence: 0.06},
					{ClassName: "overripe", Confidence: 0.02},
				}
				resp.PredictedClass = "ripe_stage_1"
				stub.respondJSON(resp)

				result, err := backend.Classify(ctx, testImagePNG(color.RGBA{A: 255}))
				Expect(err).ToNot(HaveOccurred())
				Expect(result.TopLabel).To(Equal("ripe_stage_1"))
			})

			It("tolerates a predicted_class that disagrees with the ranking", func() {
				resp := avocadoResponse()
				resp.PredictedClass = "avocado_overripe"
				stub.respondJSON(resp)

				result, err := backend.Classify(ctx, testImagePNG(color.RGBA{A: 255}))
				Expect(err).ToNot(HaveOccurred())
				Expect(result.TopLabel).To(Equal("ripe_stage_1"))
			})

			It("maps an HTTP error with detail onto ErrServer", func() {
				stub.respondRaw(http.StatusInternalServerError, `{"detail": "model weights missing"}`)

				_, err := backend.Classify(ctx, testImagePNG(color.RGBA{A: 255}))
				Expect(err).To(MatchError(ErrServer))
				Expect(err.Error()).To(ContainSubstring("status 500"))
				Expect(err.Error()).To(ContainSubstring("model weights missing"))
			})

			It("maps success=false onto ErrServer", func() {
				resp := avocadoResponse()
				resp.Success = false
				stub.respondJSON(resp)

				_, err := backend.Classify(ctx, testImagePNG(color.RGBA{A: 255}))
				Expect(err).To(MatchError(ErrServer))
			})

			It("maps unparseable bodies onto ErrMalformedResponse", func() {
				stub.respondRaw(http.StatusOK, `{this is not json`)

				_, err := backend.Classify(ctx, testImagePNG(color.RGBA{A: 255}))
				Expect(err).To(MatchError(ErrMalformedResponse))
			})

			It("rejects a response without predictions", func() {
				resp := avocadoResponse()
				resp.AllPredictions = nil
				stub.respondJSON(resp)

				_, err := backend.Classify(ctx, testImagePNG(color.RGBA{A: 255}))
				Expect(err).To(MatchError(ErrMalformedResponse))
			})

			It("rejects an incomplete prediction set", func() {
				resp := avocadoResponse()
				resp.AllPredictions = resp.AllPredictions[:4]
				stub.respondJSON(resp)

				_, err := backend.Classify(ctx, testImagePNG(color.RGBA{A: 255}))
				Expect(err).To(MatchError(ErrMalformedResponse))
			})

			It("rejects duplicate predictions", func() {
				resp := avocadoResponse()
				resp.AllPredictions[1] = resp.AllPredictions[0]
				stub.respondJSON(resp)

				_, err := backend.Classify(ctx, testImagePNG(color.RGBA{A: 255}))
				Expect(err).To(MatchError(ErrMalformedResponse))
			})

			It("rejects confidences outside the unit interval", func() {
				resp := avocadoResponse()
				resp.AllPredictions[2].Confidence = 1.2
				stub.respondJSON(resp)

				_, err := backend.Classify(ctx, testImagePNG(color.RGBA{A: 255}))
				Expect(err).To(MatchError(ErrMalformedResponse))
			})

			It("surfaces unknown labels as a data-integrity failure", func() {
				resp := avocadoResponse()
				resp.AllPredictions[0].ClassName = "avocado_quantum"
				stub.respondJSON(resp)

				_, err := backend.Classify(ctx, testImagePNG(color.RGBA{A: 255}))
				Expect(err).To(MatchError(ErrUnknownLabel))
				Expect(err.Error()).To(ContainSubstring("avocado_quantum"))
			})

			It("surfaces an unknown predicted_class", func() {
				resp := avocadoResponse()
				resp.PredictedClass = "avocado_quantum"
				stub.respondJSON(resp)

				_, err := backend.Classify(ctx, testImagePNG(color.RGBA{A: 255}))
				Expect(err).To(MatchError(ErrUnknownLabel))
			})

			It("maps transport failures onto ErrNetwork", func() {
				stub.server.Close()

				_, err := backend.Classify(ctx, testImagePNG(color.RGBA{A: 255}))
				Expect(err).To(MatchError(ErrNetwork))
			})
		})
	})

	Describe("unloading", func() {
		It("releases the binding and stays safe to repeat", func() {
			Expect(backend.Load(ctx, taxonomy.KindAvocado)).To(Succeed())
			backend.Unload()
			backend.Unload()
			Expect(backend.Loaded()).To(BeFalse())

			_, err := backend.Classify(ctx, testImagePNG(color.RGBA{A: 255}))
			Expect(err).To(MatchError(ErrNotLoaded))
		})
	})
})
