package registry

import "github.com/enhasa/enhasa/internal/speech/engine"

// TTS is the global provider registry. Backends register themselves in init().
var TTS = New[engine.Settings, engine.Provider]()
