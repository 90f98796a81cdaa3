package classification

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// testImagePNG returns an encoded solid-color PNG
func testImagePNG(c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 12, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

// writeArtifact persists a model artifact for kind into dir
func writeArtifact(dir string, kind taxonomy.ProduceKind, network *Network) {
	Expect(network.Save(filepath.Join(dir, string(kind)+".json"))).To(Succeed())
}

// biasedBananaNetwork builds a banana model whose output is dominated by
// the bias of one label, making predictions deterministic regardless of
// the image content.
func biasedBananaNetwork(winner int) *Network {
	weights := make([][]float64, 3)
	for i := range weights {
		weights[i] = make([]float64, colorFeatureDim)
	}
	biases := make([]float64, 3)
	biases[winner] = 5
	return &Network{
		Labels:  []string{"banana_unripe", "banana_ripe", "banana_overripe"},
		Weights: weights,
		Biases:  biases,
	}
}

var _ = Describe("embedded backend", func() {
	var (
		registry *taxonomy.Registry
		ctx      context.Context
		dir      string
	)

	BeforeEach(func() {
		registry = taxonomy.Default()
		ctx = context.Background()
		dir = GinkgoT().TempDir()
	})

	Describe("loading without a model artifact", func() {
		It("degrades to synthetic mode", func() {
			backend := NewEmbeddedBackend(registry, dir)
			Expect(backend.Load(ctx, taxonomy.KindBanana)).To(Succeed())
			Expect(backend.Loaded()).To(BeTrue())
			Expect(backend.Mode()).To(Equal(ModeSynthetic))
			Expect(backend.Kind()).To(Equal(taxonomy.KindBanana))
		})

		It("fails the load in strict mode", func() {
			backend := NewEmbeddedBackend(registry, dir, WithRequireModel(true))
			err := backend.Load(ctx, taxonomy.KindBanana)
			Expect(err).To(MatchError(ErrLoadFailed))
			Expect(backend.Loaded()).To(BeFalse())
		})

		It("rejects unknown produce kinds", func() {
			backend := NewEmbeddedBackend(registry, dir)
			err := backend.Load(ctx, taxonomy.ProduceKind("dragonfruit"))
			Expect(err).To(MatchError(ErrLoadFailed))
			Expect(err).To(MatchError(taxonomy.ErrUnknownKind))
			Expect(backend.Loaded()).To(BeFalse())
		})
	})

	Describe("loading a model artifact", func() {
		It("serves model predictions", func() {
			writeArtifact(dir, taxonomy.KindBanana, biasedBananaNetwork(1))
			backend := NewEmbeddedBackend(registry, dir)
			Expect(backend.Load(ctx, taxonomy.KindBanana)).To(Succeed())
			Expect(backend.Mode()).To(Equal(ModeModel))

			result, err := backend.Classify(ctx, testImagePNG(color.RGBA{R: 230, G: 210, B: 80, A: 255}))
			Expect(err).ToNot(HaveOccurred())
			Expect(result.ProduceKind).To(Equal(taxonomy.KindBanana))
			Expect(result.TopLabel).To(Equal("ripe"))
			Expect(result.TopConfidence).To(BeNumerically("~", 0.9867, 0.001))
			Expect(result.Predictions).To(HaveLen(3))
		})

		It("maps output indices through the label table", func() {
			writeArtifact(dir, taxonomy.KindBanana, biasedBananaNetwork(2))
			backend := NewEmbeddedBackend(registry, dir)
			Expect(backend.Load(ctx, taxonomy.KindBanana)).To(Succeed())

			result, err := backend.Classify(ctx, testImagePNG(color.RGBA{R: 120, G: 90, B: 60, A: 255}))
			Expect(err).ToNot(HaveOccurred())
			Expect(result.TopLabel).To(Equal("overripe"))
		})

		It("fails hard when the declared label order disagrees", func() {
			network := biasedBananaNetwork(1)
			network.Labels = []string{"banana_ripe", "banana_unripe", "banana_overripe"}
			writeArtifact(dir, taxonomy.KindBanana, network)

			// Never degrades to synthetic: wrong order would mislabel scores.
			backend := NewEmbeddedBackend(registry, dir)
			err := backend.Load(ctx, taxonomy.KindBanana)
			Expect(err).To(MatchError(ErrLoadFailed))
			Expect(err).To(MatchError(ErrLabelTableMismatch))
			Expect(backend.Loaded()).To(BeFalse())
		})

		It("treats a feature width mismatch as an unusable model", func() {
			weights := make([][]float64, 3)
			for i := range weights {
				weights[i] = make([]float64, 7)
			}
			writeArtifact(dir, taxonomy.KindBanana, &Network{
				Labels:  []string{"banana_unripe", "banana_ripe", "banana_overripe"},
				Weights: weights,
				Biases:  make([]float64, 3),
			})

			backend := NewEmbeddedBackend(registry, dir)
			Expect(backend.Load(ctx, taxonomy.KindBanana)).To(Succeed())
			Expect(backend.Mode()).To(Equal(ModeSynthetic))

			strict := NewEmbeddedBackend(registry, dir, WithRequireModel(true))
			Expect(strict.Load(ctx, taxonomy.KindBanana)).To(MatchError(ErrLoadFailed))
		})

		It("rejects undecodable image bytes", func() {
			writeArtifact(dir, taxonomy.KindBanana, biasedBananaNetwork(1))
			backend := NewEmbeddedBackend(registry, dir)
			Expect(backend.Load(ctx, taxonomy.KindBanana)).To(Succeed())

			_, err := backend.Classify(ctx, []byte("definitely not an image"))
			Expect(err).To(MatchError(ErrPreprocessing))
		})
	})

	Describe("lifecycle", func() {
		It("rejects Classify before Load", func() {
			backend := NewEmbeddedBackend(registry, dir)
			_, err := backend.Classify(ctx, testImagePNG(color.RGBA{A: 255}))
			Expect(err).To(MatchError(ErrNotLoaded))
		})

		It("is idempotent for the held kind", func() {
			writeArtifact(dir, taxonomy.KindBanana, biasedBananaNetwork(1))
			backend := NewEmbeddedBackend(registry, dir)
			Expect(backend.Load(ctx, taxonomy.KindBanana)).To(Succeed())
			Expect(backend.Load(ctx, taxonomy.KindBanana)).To(Succeed())
			Expect(backend.Mode()).To(Equal(ModeModel))
		})

		It("releases the prior kind when switching", func() {
			writeArtifact(dir, taxonomy.KindBanana, biasedBananaNetwork(1))
			backend := NewEmbeddedBackend(registry, dir)
			Expect(backend.Load(ctx, taxonomy.KindBanana)).To(Succeed())
			Expect(backend.Mode()).To(Equal(ModeModel))

			// No avocado artifact, so the switch lands in synthetic mode.
			Expect(backend.Load(ctx, taxonomy.KindAvocado)).To(Succeed())
			Expect(backend.Kind()).To(Equal(taxonomy.KindAvocado))
			Expect(backend.Mode()).To(Equal(ModeSynthetic))
		})

		It("unloads cleanly and repeatedly", func() {
			backend := NewEmbeddedBackend(registry, dir)
			Expect(backend.Load(ctx, taxonomy.KindBanana)).To(Succeed())

			backend.Unload()
			backend.Unload()
			Expect(backend.Loaded()).To(BeFalse())
			Expect(backend.Kind()).To(Equal(taxonomy.ProduceKind("")))

			_, err := backend.Classify(ctx, testImagePNG(color.RGBA{A: 255}))
			Expect(err).To(MatchError(ErrNotLoaded))
		})

		It("honors context cancellation", func() {
			backend := NewEmbeddedBackend(registry, dir)
			Expect(backend.Load(ctx, taxonomy.KindBanana)).To(Succeed())

			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := backend.Classify(cancelled, testImagePNG(color.RGBA{A: 255}))
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("synthetic predictions", func() {
		It("keeps the winner range and covers every stage over many runs", func() {
			backend := NewEmbeddedBackend(registry, dir)
			Expect(backend.Load(ctx, taxonomy.KindBanana)).To(Succeed())

			winners := map[string]int{}
			for i := 0; i < 1000; i++ {
				result, err := backend.Classify(ctx, []byte("synthetic ignores bytes"))
				Expect(err).ToNot(HaveOccurred())
				Expect(result.Predictions).To(HaveLen(3))

				Expect(result.TopConfidence).To(BeNumerically(">=", syntheticWinnerMin))
				Expect(result.TopConfidence).To(BeNumerically("<=", syntheticWinnerMax))
				for _, p := range result.Predictions[1:] {
					Expect(p.Confidence).To(BeNumerically("<=", syntheticLoserMax))
				}
				for j := 1; j < len(result.Predictions); j++ {
					Expect(result.Predictions[j].Confidence).To(BeNumerically("<=", result.Predictions[j-1].Confidence))
				}
				winners[result.TopLabel]++
			}

			// Uniform winner choice must hit every stage across 1000 draws.
			Expect(winners).To(HaveLen(3))
		})
	})
})
