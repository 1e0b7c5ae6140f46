package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/proxiehq/proxie-go/api"
	"github.com/proxiehq/proxie-go/chat"
	clienterrors "github.com/proxiehq/proxie-go/internal/errors"
	"github.com/proxiehq/proxie-go/internal/profile"
	"github.com/proxiehq/proxie-go/media"
	"github.com/proxiehq/proxie-go/realtime"
	"github.com/proxiehq/proxie-go/store"
	"github.com/proxiehq/proxie-go/voice"
)

var (
	version = "0.3.0"

	rootCmd = &cobra.Command{
		Use:     "proxie",
		Short:   "Terminal dialogue client for the Proxie service marketplace",
		Version: version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := &profile.Profile{Version: version}
			p.FromEnv()

			// Flags override the environment.
			p.Mode = viper.GetString("mode")
			p.Data = viper.GetString("data")
			if v := viper.GetString("driver"); v != "" {
				p.Driver = v
			}
			if v := viper.GetString("dsn"); v != "" {
				p.DSN = v
			}
			if v := viper.GetString("api-url"); v != "" {
				p.APIBaseURL = v
			}
			if v := viper.GetString("socket-url"); v != "" {
				p.SocketURL = v
			}
			if v := viper.GetString("role"); v != "" {
				p.Role = v
			}
			if n := viper.GetInt("max-attachments"); n > 0 {
				p.MaxAttachments = n
			}

			if err := p.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), p)
		},
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of the client, can be "prod", "dev" or "demo"`)
	flags.String("data", "", "data directory for device-scoped state")
	flags.String("driver", "sqlite", `device store driver, can be "sqlite" or "memory"`)
	flags.String("dsn", "", "device store DSN")
	flags.String("api-url", "", "marketplace backend base URL")
	flags.String("socket-url", "", "realtime channel endpoint")
	flags.String("role", "", `dialogue role: "consumer", "provider" or "enrollment"`)
	flags.Int("max-attachments", 5, "maximum staged attachments")
	flags.String("initial", "", "initial message to dispatch on startup")
	flags.String("rebook", "", "booking id to rebook")
	flags.String("lead", "", "lead id to ask about (provider role)")
	flags.String("provider-id", "", "provider correlation id")

	for _, name := range []string{"mode", "data", "driver", "dsn", "api-url", "socket-url", "role", "max-attachments", "initial", "rebook", "lead", "provider-id"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("proxie")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func run(ctx context.Context, p *profile.Profile) error {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	devices, err := store.NewDeviceStore(p)
	if err != nil {
		return err
	}
	defer devices.Close()

	role := chat.Role(p.Role)
	session := chat.NewSession(role)
	if pid := viper.GetString("provider-id"); pid != "" {
		session.SetProviderID(pid)
	} else if pid, ok, _ := devices.Get(ctx, store.KeyProviderID); ok {
		session.SetProviderID(pid)
	}

	views := store.NewMemoryKV()
	guard := chat.NewGuard(views, logger)
	pipeline := media.NewPipeline(p.MaxAttachments)
	client := api.NewClient(p.APIBaseURL)

	var speaker *voice.Speaker
	var recognizer *voice.Recognizer
	if p.IsVoiceEnabled() {
		voiceCfg := voice.Config{
			APIKey:   p.VoiceAPIKey,
			BaseURL:  p.VoiceBaseURL,
			STTModel: p.VoiceSTTModel,
			TTSModel: p.VoiceTTSModel,
			TTSVoice: p.VoiceTTSVoice,
		}
		speaker = voice.NewSpeaker(voiceCfg, nil)
		speaker.SetEnabled(true)
		recognizer = voice.NewRecognizer(voiceCfg)
	}

	opts := []chat.EngineOption{chat.WithPipeline(pipeline)}
	channel, err := realtime.Dial(ctx, p.SocketURL, logger,
		realtime.OnSessionReady(session.SetID),
	)
	if err != nil {
		// The pull cycle is authoritative; run without push events.
		logger.Warn("realtime channel unavailable", slog.String("error", err.Error()))
	} else {
		defer channel.Close()
		opts = append(opts, chat.WithChannel(channel))
	}
	if speaker != nil {
		opts = append(opts, chat.WithSpeaker(speaker))
	}

	engine := chat.NewEngine(client, guard, session, devices, logger, opts...)
	bootstrapper := chat.NewBootstrapper(engine, views, devices, client, logger)

	if _, err := bootstrapper.Greet(ctx); err != nil {
		return err
	}
	printLast(session)

	activation := chat.Activation{
		Initial:  viper.GetString("initial"),
		RebookID: viper.GetString("rebook"),
		LeadID:   viper.GetString("lead"),
	}
	if err := bootstrapper.SendInitial(ctx, activation); err != nil {
		logger.Error("initial dispatch failed", slog.String("error", err.Error()))
	}
	printLast(session)

	view := &dialogueView{
		engine:     engine,
		client:     client,
		pipeline:   pipeline,
		speaker:    speaker,
		recognizer: recognizer,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return view.repl(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	return g.Wait()
}

// dialogueView is the terminal rendering of one role-scoped session.
type dialogueView struct {
	engine     *chat.Engine
	client     *api.Client
	pipeline   *media.Pipeline
	speaker    *voice.Speaker
	recognizer *voice.Recognizer
}

func (v *dialogueView) repl(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "/quit" || line == "/exit":
			return nil
		case strings.HasPrefix(line, "/image "):
			v.attachFile(strings.TrimPrefix(line, "/image "), media.KindImage)
		case strings.HasPrefix(line, "/video "):
			v.attachFile(strings.TrimPrefix(line, "/video "), media.KindVideo)
		case strings.HasPrefix(line, "/listen "):
			v.listen(ctx, strings.TrimPrefix(line, "/listen "))
		case line == "/enrollment":
			v.showEnrollment(ctx)
		case line == "/voice on" && v.speaker != nil:
			v.speaker.SetEnabled(true)
		case line == "/voice off" && v.speaker != nil:
			v.speaker.SetEnabled(false)
		case line != "":
			v.send(ctx, line)
		}
		fmt.Print("> ")
	}
	return scanner.Err()
}

func (v *dialogueView) send(ctx context.Context, text string) {
	if err := v.engine.Send(ctx, text, ""); err != nil {
		code := clienterrors.GetCodeFromError(err, clienterrors.ErrCodeTransportFailed)
		fmt.Fprintf(os.Stderr, "send failed (%s): %v\n", code, err)
	}
	printLast(v.engine.Session())
}

func (v *dialogueView) attachFile(path string, kind media.Kind) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "attach failed:", err)
		return
	}
	defer f.Close()

	if kind == media.KindVideo {
		_, err = v.pipeline.AddVideo(f, "video/mp4")
	} else {
		_, err = v.pipeline.AddImage(f, "image/jpeg")
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "attach failed:", err)
		return
	}
	fmt.Printf("staged %d attachment(s)\n", v.pipeline.Len())
}

// listen transcribes a recorded clip and dispatches the transcript.
func (v *dialogueView) listen(ctx context.Context, path string) {
	if v.recognizer == nil {
		fmt.Fprintln(os.Stderr, "voice is not configured; set PROXIE_VOICE_ENABLED and PROXIE_VOICE_API_KEY")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "listen failed:", err)
		return
	}
	defer f.Close()

	transcript, err := v.recognizer.RecognizeOnce(ctx, f, path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "listen failed:", err)
		return
	}
	fmt.Printf("You said: %s\n", transcript)
	v.send(ctx, transcript)
}

func (v *dialogueView) showEnrollment(ctx context.Context) {
	id := v.engine.Session().EnrollmentID()
	if id == "" {
		fmt.Fprintln(os.Stderr, "no enrollment in progress")
		return
	}
	enr, err := v.client.GetEnrollment(ctx, id)
	if err != nil {
		fmt.Fprintln(os.Stderr, "enrollment lookup failed:", err)
		return
	}
	fmt.Printf("enrollment %s: %s\n", enr.ID, enr.Status)
}

func printLast(session *chat.Session) {
	msg, ok := session.LastMessage()
	if !ok || msg.Origin != chat.OriginAssistant {
		return
	}
	fmt.Printf("\nProxie: %s\n", msg.Content)
	if panel, ok := chat.Route(msg.Data, msg.Draft); ok {
		fmt.Printf("[panel: %s]\n", panel.Kind)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
