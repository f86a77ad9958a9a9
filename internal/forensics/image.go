package forensics

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"

	"github.com/verilayer/lavs/internal/domain"
)

// ImageProducer fills the image pattern integrity layer. It decodes the
// pixels and scores five sub-heuristics targeting the statistical signatures
// of generative models: over-smoothed noise, uniform micro-regions, weak
// boundaries, mirror symmetry, and low-entropy textures.
type ImageProducer struct{}

func NewImageProducer() *ImageProducer { return &ImageProducer{} }

func (p *ImageProducer) Layer() string { return domain.LayerPatternImage }

// Sub-heuristic weights, summing to 1 so the layer score stays in [0,100].
const (
	imgWeightNoise    = 0.30
	imgWeightRegions  = 0.20
	imgWeightEntropy  = 0.20
	imgWeightEdges    = 0.15
	imgWeightSymmetry = 0.15
)

// maxLumaDim caps the sampled luminance grid; statistics stabilize well
// below this.
const maxLumaDim = 256

func (p *ImageProducer) Analyze(ctx context.Context, art *domain.Artifact) domain.LayerEvidence {
	img, _, err := image.Decode(bytes.NewReader(art.Bytes))
	if err != nil {
		return domain.Unavailable(p.Layer(), fmt.Sprintf("failed to decode image: %v", err))
	}

	luma := luminanceGrid(img)
	if len(luma) < 8 || len(luma[0]) < 8 {
		return domain.Unavailable(p.Layer(), "image too small for pattern analysis")
	}

	var ws weightedSum

	sigma := gridStddev(luma)
	ws.add(imgWeightNoise, noiseRisk(sigma),
		fmt.Sprintf("Noise level (sigma): %.2f", sigma),
		"Unnaturally smooth texture (possible AI over-smoothing).")

	spread := regionVarianceSpread(luma, 4)
	ws.add(imgWeightRegions, regionRisk(spread),
		fmt.Sprintf("Region variance spread: %.2f", spread),
		"Micro-regions too uniform (cross-region coherence overly smooth).")

	entropy := gridEntropy(luma)
	ws.add(imgWeightEntropy, entropyRisk(entropy),
		fmt.Sprintf("Pixel histogram entropy: %.2f bits", entropy),
		"Low entropy in pixel distribution (possible synthetic texture).")

	borderE, centerE := edgeEnergy(luma)
	ws.add(imgWeightEdges, edgeRisk(borderE, centerE),
		fmt.Sprintf("Edge energy border/center: %.2f/%.2f", borderE, centerE),
		"Weak boundary details compared to center (possible compositing).")

	symDiff := symmetryDifference(luma)
	ws.add(imgWeightSymmetry, symmetryRisk(symDiff),
		fmt.Sprintf("Horizontal symmetry difference: %.2f", symDiff),
		"Overly symmetric content (possible AI patterning).")

	return domain.LayerEvidence{
		Layer:     p.Layer(),
		Score:     ws.total(),
		Details:   ws.details,
		Available: true,
	}
}

func noiseRisk(sigma float64) float64 {
	switch {
	case sigma < 5:
		return 85
	case sigma < 12:
		return 45
	case sigma < 20:
		return 15
	default:
		return 0
	}
}

func regionRisk(spread float64) float64 {
	switch {
	case spread < 50:
		return 70
	case spread < 150:
		return 30
	default:
		return 0
	}
}

func entropyRisk(entropy float64) float64 {
	switch {
	case entropy < 4:
		return 75
	case entropy < 6:
		return 35
	default:
		return 0
	}
}

func edgeRisk(border, center float64) float64 {
	if center > 0 && border < 0.4*center {
		return 65
	}
	return 0
}

func symmetryRisk(diff float64) float64 {
	switch {
	case diff < 5:
		return 70
	case diff < 10:
		return 30
	default:
		return 0
	}
}

// luminanceGrid samples the image into a bounded grid of 0-255 luminance
// values.
func luminanceGrid(img image.Image) [][]float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	stepX, stepY := 1, 1
	if w > maxLumaDim {
		stepX = w / maxLumaDim
	}
	if h > maxLumaDim {
		stepY = h / maxLumaDim
	}

	rows := h / stepY
	cols := w / stepX
	grid := make([][]float64, rows)
	for y := 0; y < rows; y++ {
		row := make([]float64, cols)
		for x := 0; x < cols; x++ {
			r, g, bl, _ := img.At(b.Min.X+x*stepX, b.Min.Y+y*stepY).RGBA()
			// ITU-R BT.601 luma from 16-bit channels.
			row[x] = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)) / 257.0
		}
		grid[y] = row
	}
	return grid
}

func flatten(grid [][]float64) []float64 {
	out := make([]float64, 0, len(grid)*len(grid[0]))
	for _, row := range grid {
		out = append(out, row...)
	}
	return out
}

func gridStddev(grid [][]float64) float64 {
	return stddev(flatten(grid))
}

func gridEntropy(grid [][]float64) float64 {
	return histogramEntropy(flatten(grid), 256, 0, 256)
}

// regionVarianceSpread splits the grid into n x n regions and returns the
// standard deviation of the per-region variances. Natural images vary a lot
// region to region; generated ones tend to be even.
func regionVarianceSpread(grid [][]float64, n int) float64 {
	rows, cols := len(grid), len(grid[0])
	vars := make([]float64, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			r0, r1 := i*rows/n, (i+1)*rows/n
			c0, c1 := j*cols/n, (j+1)*cols/n
			var region []float64
			for y := r0; y < r1; y++ {
				region = append(region, grid[y][c0:c1]...)
			}
			vars = append(vars, variance(region))
		}
	}
	return stddev(vars)
}

// edgeEnergy returns the mean gradient magnitude in a 10-cell border band
// versus the center.
func edgeEnergy(grid [][]float64) (border, center float64) {
	rows, cols := len(grid), len(grid[0])
	band := 10
	if band*2 >= rows || band*2 >= cols {
		band = 1
	}

	var borderVals, centerVals []float64
	for y := 1; y < rows-1; y++ {
		for x := 1; x < cols-1; x++ {
			g := math.Abs(grid[y][x+1]-grid[y][x-1]) + math.Abs(grid[y+1][x]-grid[y-1][x])
			if y < band || y >= rows-band || x < band || x >= cols-band {
				borderVals = append(borderVals, g)
			} else {
				centerVals = append(centerVals, g)
			}
		}
	}
	return mean(borderVals), mean(centerVals)
}

// symmetryDifference is the mean absolute difference between the grid and
// its horizontal mirror.
func symmetryDifference(grid [][]float64) float64 {
	rows, cols := len(grid), len(grid[0])
	var sum float64
	var count int
	for y := 0; y < rows; y++ {
		for x := 0; x < cols/2; x++ {
			sum += math.Abs(grid[y][x] - grid[y][cols-1-x])
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
