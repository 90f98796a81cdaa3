package classification

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// stubBackend scripts backend outcomes for session specs
type stubBackend struct {
	loadErr       error
	classifyErr   error
	result        *ClassificationResult
	loaded        bool
	loadCalls     int
	classifyCalls int
	unloadCalls   int
}

func (b *stubBackend) Load(_ context.Context, _ taxonomy.ProduceKind) error {
	b.loadCalls++
	if b.loadErr != nil {
		return b.loadErr
	}
	b.loaded = true
	return nil
}

func (b *stubBackend) Classify(_ context.Context, _ []byte) (*ClassificationResult, error) {
	b.classifyCalls++
	if b.classifyErr != nil {
		return nil, b.classifyErr
	}
	return b.result, nil
}

func (b *stubBackend) Unload() {
	b.unloadCalls++
	b.loaded = false
}

func (b *stubBackend) Loaded() bool { return b.loaded }

func bananaResult(top string, confidence float64) *ClassificationResult {
	rest := (1 - confidence) / 2
	return &ClassificationResult{
		ProduceKind:   taxonomy.KindBanana,
		TopLabel:      top,
		TopConfidence: confidence,
		Predictions: []PredictionScore{
			{Label: top, Confidence: confidence},
			{Label: "unripe", Confidence: rest},
			{Label: "overripe", Confidence: rest},
		},
	}
}

var _ = Describe("classification session", func() {
	var (
		backend *stubBackend
		session *Session
		ctx     context.Context
	)

	BeforeEach(func() {
		backend = &stubBackend{result: bananaResult("ripe", 0.9)}
		session = NewSession(backend)
		ctx = context.Background()
	})

	Describe("initial state", func() {
		It("starts unloaded with nothing stored", func() {
			Expect(session.State()).To(Equal(StateUnloaded))
			Expect(session.Result()).To(BeNil())
			Expect(session.LastError()).To(BeNil())
			Expect(session.Kind()).To(Equal(taxonomy.ProduceKind("")))
		})

		It("rejects Classify before any Load", func() {
			result, err := session.Classify(ctx, []byte("img"))
			Expect(err).To(MatchError(ErrNotReady))
			Expect(result).To(BeNil())
			Expect(backend.classifyCalls).To(BeZero())
		})
	})

	Describe("loading", func() {
		It("reaches Ready on success", func() {
			Expect(session.Load(ctx, taxonomy.KindBanana)).To(Succeed())
			Expect(session.State()).To(Equal(StateReady))
			Expect(session.Kind()).To(Equal(taxonomy.KindBanana))
			Expect(session.LastError()).To(BeNil())
		})

		It("parks in Error on backend failure", func() {
			backend.loadErr = errors.New("artifact corrupt")
			err := session.Load(ctx, taxonomy.KindBanana)
			Expect(err).To(MatchError("artifact corrupt"))
			Expect(session.State()).To(Equal(StateError))
			Expect(session.LastError()).To(MatchError("artifact corrupt"))
		})

		It("rejects Classify while in Error", func() {
			backend.loadErr = errors.New("artifact corrupt")
			Expect(session.Load(ctx, taxonomy.KindBanana)).ToNot(Succeed())

			_, err := session.Classify(ctx, []byte("img"))
			Expect(err).To(MatchError(ErrNotReady))
		})

		It("recovers from Error through a new Load", func() {
			backend.loadErr = errors.New("artifact corrupt")
			Expect(session.Load(ctx, taxonomy.KindBanana)).ToNot(Succeed())

			backend.loadErr = nil
			Expect(session.Load(ctx, taxonomy.KindBanana)).To(Succeed())
			Expect(session.State()).To(Equal(StateReady))
			Expect(session.LastError()).To(BeNil())
		})

		It("discards the stored result when switching kinds", func() {
			Expect(session.Load(ctx, taxonomy.KindBanana)).To(Succeed())
			_, err := session.Classify(ctx, []byte("img"))
			Expect(err).ToNot(HaveOccurred())
			Expect(session.Result()).ToNot(BeNil())

			Expect(session.Load(ctx, taxonomy.KindAvocado)).To(Succeed())
			Expect(session.Result()).To(BeNil())
			Expect(session.Kind()).To(Equal(taxonomy.KindAvocado))
		})

		It("keeps the stored result when reloading the same kind", func() {
			Expect(session.Load(ctx, taxonomy.KindBanana)).To(Succeed())
			_, err := session.Classify(ctx, []byte("img"))
			Expect(err).ToNot(HaveOccurred())

			Expect(session.Load(ctx, taxonomy.KindBanana)).To(Succeed())
			Expect(session.Result()).ToNot(BeNil())
		})
	})

	Describe("classifying", func() {
		BeforeEach(func() {
			Expect(session.Load(ctx, taxonomy.KindBanana)).To(Succeed())
		})

		It("returns the result and stores it", func() {
			result, err := session.Classify(ctx, []byte("img"))
			Expect(err).ToNot(HaveOccurred())
			Expect(result.TopLabel).To(Equal("ripe"))
			Expect(session.Result()).To(Equal(result))
			Expect(session.State()).To(Equal(StateReady))
		})

		It("replaces the previous result on the next call", func() {
			_, err := session.Classify(ctx, []byte("img"))
			Expect(err).ToNot(HaveOccurred())

			backend.result = bananaResult("overripe", 0.8)
			result, err := session.Classify(ctx, []byte("img2"))
			Expect(err).ToNot(HaveOccurred())
			Expect(result.TopLabel).To(Equal("overripe"))
			Expect(session.Result().TopLabel).To(Equal("overripe"))
		})

		Context("when the backend fails", func() {
			BeforeEach(func() {
				backend.classifyErr = errors.New("service blew up")
			})

			It("returns to Ready holding the error", func() {
				result, err := session.Classify(ctx, []byte("img"))
				Expect(err).To(MatchError("service blew up"))
				Expect(result).To(BeNil())
				Expect(session.State()).To(Equal(StateReady))
				Expect(session.LastError()).To(MatchError("service blew up"))
			})

			It("discards any previously stored result", func() {
				backend.classifyErr = nil
				_, err := session.Classify(ctx, []byte("img"))
				Expect(err).ToNot(HaveOccurred())
				Expect(session.Result()).ToNot(BeNil())

				backend.classifyErr = errors.New("service blew up")
				_, err = session.Classify(ctx, []byte("img2"))
				Expect(err).To(HaveOccurred())
				Expect(session.Result()).To(BeNil())
			})

			It("allows an immediate retry without reloading", func() {
				_, err := session.Classify(ctx, []byte("img"))
				Expect(err).To(HaveOccurred())

				backend.classifyErr = nil
				result, err := session.Classify(ctx, []byte("img"))
				Expect(err).ToNot(HaveOccurred())
				Expect(result).ToNot(BeNil())
				Expect(session.LastError()).To(BeNil())
				Expect(backend.loadCalls).To(Equal(1))
			})
		})
	})

	Describe("Clear", func() {
		It("drops the result and error but keeps the load state", func() {
			Expect(session.Load(ctx, taxonomy.KindBanana)).To(Succeed())
			_, err := session.Classify(ctx, []byte("img"))
			Expect(err).ToNot(HaveOccurred())

			session.Clear()
			Expect(session.Result()).To(BeNil())
			Expect(session.LastError()).To(BeNil())
			Expect(session.State()).To(Equal(StateReady))
			Expect(session.Kind()).To(Equal(taxonomy.KindBanana))
		})
	})

	Describe("observers", func() {
		It("delivers the current snapshot on subscribe", func() {
			var seen []Snapshot
			unsubscribe := session.Subscribe(func(s Snapshot) {
				seen = append(seen, s)
			})
			defer unsubscribe()

			Expect(seen).To(HaveLen(1))
			Expect(seen[0].State).To(Equal(StateUnloaded))
		})

		It("publishes every transition of a load and classify cycle", func() {
			var states []SessionState
			unsubscribe := session.Subscribe(func(s Snapshot) {
				states = append(states, s.State)
			})
			defer unsubscribe()

			Expect(session.Load(ctx, taxonomy.KindBanana)).To(Succeed())
			_, err := session.Classify(ctx, []byte("img"))
			Expect(err).ToNot(HaveOccurred())

			Expect(states).To(Equal([]SessionState{
				StateUnloaded,
				StateLoading,
				StateReady,
				StateClassifying,
				StateReady,
			}))
		})

		It("carries the failure in the error snapshot", func() {
			backend.loadErr = errors.New("artifact corrupt")
			var last Snapshot
			unsubscribe := session.Subscribe(func(s Snapshot) { last = s })
			defer unsubscribe()

			Expect(session.Load(ctx, taxonomy.KindBanana)).ToNot(Succeed())
			Expect(last.State).To(Equal(StateError))
			Expect(last.Err).To(MatchError("artifact corrupt"))
		})

		It("stops delivering after unsubscribe", func() {
			count := 0
			unsubscribe := session.Subscribe(func(Snapshot) { count++ })
			Expect(count).To(Equal(1))

			unsubscribe()
			Expect(session.Load(ctx, taxonomy.KindBanana)).To(Succeed())
			Expect(count).To(Equal(1))
		})

		It("supports multiple observers independently", func() {
			first, second := 0, 0
			stopFirst := session.Subscribe(func(Snapshot) { first++ })
			stopSecond := session.Subscribe(func(Snapshot) { second++ })
			defer stopSecond()

			stopFirst()
			Expect(session.Load(ctx, taxonomy.KindBanana)).To(Succeed())

			Expect(first).To(Equal(1))
			Expect(second).To(BeNumerically(">", 1))
		})
	})
})
