package engine

import "strings"

// VoiceOption is one voice of a provider catalog.
type VoiceOption struct {
	ID             string   `json:"id"             yaml:"id"`
	Name           string   `json:"name"           yaml:"name"`
	Description    string   `json:"description"    yaml:"description"`
	SuitableGenres []string `json:"suitableGenres" yaml:"genres"`
}

// SuitsGenre matches genre case-insensitively against the voice's genres.
func (v VoiceOption) SuitsGenre(genre string) bool {
	for _, g := range v.SuitableGenres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// VoiceCatalog is the immutable set of voices offered by one provider.
type VoiceCatalog struct {
	Provider     ProviderID    `json:"provider"`
	DefaultVoice string        `json:"defaultVoice"`
	Voices       []VoiceOption `json:"voices"`
}

// Recommend returns the first voice suited to genre, or the default voice.
func (c VoiceCatalog) Recommend(genre string) string {
	if genre != "" {
		for _, v := range c.Voices {
			if v.SuitsGenre(genre) {
				return v.ID
			}
		}
	}
	return c.DefaultVoice
}

// Lookup returns the voice with the given id.
func (c VoiceCatalog) Lookup(id string) (VoiceOption, bool) {
	for _, v := range c.Voices {
		if v.ID == id {
			return v, true
		}
	}
	return VoiceOption{}, false
}
