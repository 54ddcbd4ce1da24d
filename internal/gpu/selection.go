package gpu

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
)

// Score weights. A disqualifying penalty outweighs every bonus combined, so a
// device missing a requirement can never score above zero.
const (
	scoreDiscrete       = 100
	scoreGeometryShader = 100
	scoreQueuesComplete = 100
	scoreDisqualified   = -100000
)

// QueueFamilyIndices records which queue family serves each role.
type QueueFamilyIndices struct {
	GraphicsFamily *int
	PresentFamily  *int
	TransferFamily *int
}

func (i *QueueFamilyIndices) IsComplete() bool {
	return i.GraphicsFamily != nil && i.PresentFamily != nil && i.TransferFamily != nil
}

// Unique returns the distinct families in graphics, present, transfer order.
// It must only be called on a complete set.
func (i *QueueFamilyIndices) Unique() []int {
	var families []int
	for _, family := range []int{*i.GraphicsFamily, *i.PresentFamily, *i.TransferFamily} {
		seen := false
		for _, f := range families {
			if f == family {
				seen = true
				break
			}
		}
		if !seen {
			families = append(families, family)
		}
	}
	return families
}

// SharingMode returns concurrent sharing across the distinct families when
// the roles are split, otherwise exclusive.
func (i *QueueFamilyIndices) SharingMode() (core1_0.SharingMode, []int) {
	unique := i.Unique()
	if len(unique) > 1 {
		return core1_0.SharingModeConcurrent, unique
	}
	return core1_0.SharingModeExclusive, nil
}

// FindQueueFamilies scans the families once and records the first index that
// supports graphics, the first that can present to the surface and the first
// that supports transfer. One family may fill several roles.
func FindQueueFamilies(flags []core1_0.QueueFlags, supportsPresent func(family int) (bool, error)) (QueueFamilyIndices, error) {
	indices := QueueFamilyIndices{}

	for queueFamilyIdx, queueFlags := range flags {
		idx := queueFamilyIdx
		if indices.GraphicsFamily == nil && (queueFlags&core1_0.QueueGraphics) != 0 {
			indices.GraphicsFamily = &idx
		}

		if indices.TransferFamily == nil && (queueFlags&core1_0.QueueTransfer) != 0 {
			indices.TransferFamily = &idx
		}

		if indices.PresentFamily == nil {
			supported, err := supportsPresent(queueFamilyIdx)
			if err != nil {
				return indices, errors.Wrapf(err, "query present support for queue family %d", queueFamilyIdx)
			}

			if supported {
				indices.PresentFamily = &idx
			}
		}

		if indices.IsComplete() {
			break
		}
	}

	return indices, nil
}

// Candidate is everything device selection needs to know about one GPU.
type Candidate struct {
	Name                string
	Discrete            bool
	GeometryShader      bool
	SamplerAnisotropy   bool
	Queues              QueueFamilyIndices
	ExtensionsSupported bool
	SurfaceFormats      int
	PresentModes        int
}

// Score rates a device. Positive heuristics are summed with large negative
// penalties for each unmet requirement; only scores above zero are usable.
func Score(c Candidate) int {
	score := 0
	if c.Discrete {
		score += scoreDiscrete
	}
	if c.GeometryShader {
		score += scoreGeometryShader
	}

	if c.Queues.IsComplete() {
		score += scoreQueuesComplete
	} else {
		score += scoreDisqualified
	}

	if !c.SamplerAnisotropy {
		score += scoreDisqualified
	}

	if !c.ExtensionsSupported {
		score += scoreDisqualified
	}

	if c.SurfaceFormats == 0 || c.PresentModes == 0 {
		score += scoreDisqualified
	}

	return score
}

// Select returns the index of the highest scoring candidate. Ties keep the
// earliest device. It fails with ErrNoSuitableDevice when nothing scores
// above zero.
func Select(candidates []Candidate) (int, error) {
	best, bestScore := -1, 0
	for i, c := range candidates {
		score := Score(c)
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 {
		return -1, errors.Wrapf(ErrNoSuitableDevice, "%d device(s) considered", len(candidates))
	}

	return best, nil
}

// missingExtensions lists the required names that has reports as absent.
func missingExtensions(required []string, has func(string) bool) []string {
	var missing []string
	for _, name := range required {
		if !has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}
