package app

import (
	"github.com/sharpsoft/almosthuman/internal/config"
	"github.com/sharpsoft/almosthuman/internal/constants/prompts"
	ws "github.com/sharpsoft/almosthuman/internal/handlers/websocket"
	"github.com/sharpsoft/almosthuman/internal/server"
	"github.com/sharpsoft/almosthuman/pkg/Logger"
	"github.com/sharpsoft/almosthuman/pkg/assistant"
	"github.com/sharpsoft/almosthuman/pkg/stt/whisper"
	"github.com/sharpsoft/almosthuman/pkg/tts/kokoro"
)

// App wires the collaborators and the connection registry together. Each
// engine is constructed once for the process and passed down explicitly.
type App struct {
	Config     *config.Settings
	Logger     *Logger.Logger
	Registry   *ws.ConnectionRegistry
	ServerDeps server.Dependencies
}

func NewApp(cfg *config.Settings, logger *Logger.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}
	if err := a.setupDependencies(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) setupDependencies() error {
	a.Registry = ws.NewConnectionRegistry(a.Logger.Named("registry"), a.Config.Pipeline.DrainTimeout)

	provider, err := newProvider(a.Config, a.Logger)
	if err != nil {
		return err
	}

	collab := ws.Collaborators{
		Transcriber: whisper.New(a.Config.Voice.STTURL, a.Config.Voice.InputSampleRate, a.Logger.Named("stt")),
		Responder:   assistant.NewReceptionist(provider, prompts.Receptionist, a.Logger.Named("assistant")),
		Synthesizer: kokoro.New(a.Config.Voice.TTSURL, a.Config.Voice.TTSVoice),
	}

	a.ServerDeps = server.NewServerDependencies(a.Logger, a.Config, a.Registry, collab)
	return nil
}

// Shutdown closes every live connection; the per-session supervisors finish
// their own teardown when the closed connections surface in their units.
func (a *App) Shutdown() {
	a.Registry.CloseAll()
}
