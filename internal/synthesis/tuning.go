package synthesis

import "sync"

// Tuning holds the synthesis query knobs applied to every audio query before
// it is sent back to the engine. Values mirror the fields of the VOICEVOX
// audio_query JSON.
type Tuning struct {
	mu     sync.RWMutex
	values map[string]float64
	stereo bool
}

// Knob keys accepted by Tuning.Set.
const (
	KnobSpeedScale         = "speedScale"
	KnobPitchScale         = "pitchScale"
	KnobIntonationScale    = "intonationScale"
	KnobVolumeScale        = "volumeScale"
	KnobPauseLengthScale   = "pauseLengthScale"
	KnobPrePhonemeLength   = "prePhonemeLength"
	KnobPostPhonemeLength  = "postPhonemeLength"
	KnobOutputSamplingRate = "outputSamplingRate"
)

func defaultKnobs() map[string]float64 {
	return map[string]float64{
		KnobSpeedScale:         1.0,
		KnobPitchScale:         0,
		KnobIntonationScale:    1.0,
		KnobVolumeScale:        1.5,
		KnobPauseLengthScale:   0.9,
		KnobPrePhonemeLength:   0.1,
		KnobPostPhonemeLength:  0.1,
		KnobOutputSamplingRate: 44100,
	}
}

// NewTuning returns a Tuning with the default knob values.
func NewTuning() *Tuning {
	return &Tuning{values: defaultKnobs(), stereo: true}
}

// Set updates one knob. Unknown keys are rejected.
func (t *Tuning) Set(key string, value float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.values[key]; !ok {
		return false
	}
	t.values[key] = value
	return true
}

// Get returns the current value of one knob.
func (t *Tuning) Get(key string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[key]
	return v, ok
}

// Reset restores all knobs to their defaults.
func (t *Tuning) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values = defaultKnobs()
	t.stereo = true
}

// Snapshot returns a copy of the current knob values.
func (t *Tuning) Snapshot() map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]float64, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}

// applyToQuery overwrites matching keys of a decoded audio_query document.
// Only keys the engine returned are touched, so engine versions with a
// different query shape keep working.
func (t *Tuning) applyToQuery(query map[string]interface{}) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for k, v := range t.values {
		if _, ok := query[k]; !ok {
			continue
		}
		if k == KnobOutputSamplingRate {
			query[k] = int(v)
			continue
		}
		query[k] = v
	}
	if _, ok := query["outputStereo"]; ok {
		query["outputStereo"] = t.stereo
	}
}
