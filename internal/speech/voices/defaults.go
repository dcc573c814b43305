package voices

import "github.com/enhasa/enhasa/internal/speech/engine"

// Defaults returns the built-in catalogs.
func Defaults() map[engine.ProviderID]engine.VoiceCatalog {
	return map[engine.ProviderID]engine.VoiceCatalog{
		engine.ElevenLabs: {
			Provider:     engine.ElevenLabs,
			DefaultVoice: "21m00Tcm4TlvDq8ikWAM",
			Voices: []engine.VoiceOption{
				{
					ID:             "21m00Tcm4TlvDq8ikWAM",
					Name:           "Rachel",
					Description:    "Calm, professional female voice",
					SuitableGenres: []string{"Non-fiction", "Business", "Self-help"},
				},
				{
					ID:             "AZnzlk1XvdvUeBnXmlld",
					Name:           "Domi",
					Description:    "Conversational, warm female voice",
					SuitableGenres: []string{"Fiction", "Children", "Romance"},
				},
				{
					ID:             "EXAVITQu4vr4xnSDxMaL",
					Name:           "Adam",
					Description:    "Authoritative male voice",
					SuitableGenres: []string{"Adventure", "Mystery", "Thriller"},
				},
				{
					ID:             "pNInz6obpgDQGcFmaJgB",
					Name:           "Sam",
					Description:    "Deep, clear male voice",
					SuitableGenres: []string{"Science Fiction", "Fantasy", "History"},
				},
			},
		},
		engine.PlayHT: {
			Provider:     engine.PlayHT,
			DefaultVoice: "jennifer",
			Voices: []engine.VoiceOption{
				{
					ID:             "jennifer",
					Name:           "Jennifer",
					Description:    "Professional female voice",
					SuitableGenres: []string{"Business", "Finance", "Self-help"},
				},
				{
					ID:             "matthew",
					Name:           "Matthew",
					Description:    "Clear, articulate male voice",
					SuitableGenres: []string{"Non-fiction", "Self-help", "Business"},
				},
				{
					ID:             "sophie",
					Name:           "Sophie",
					Description:    "Warm, engaging female voice",
					SuitableGenres: []string{"Fiction", "Romance", "Children"},
				},
				{
					ID:             "mike",
					Name:           "Mike",
					Description:    "Energetic male voice",
					SuitableGenres: []string{"Adventure", "Thriller", "Sports"},
				},
				{
					ID:             "jack",
					Name:           "Jack",
					Description:    "Deep, suspenseful male voice",
					SuitableGenres: []string{"Crime", "Mystery", "Thriller"},
				},
			},
		},
	}
}
