package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/wingman/internal/profile"
	"github.com/hrygo/wingman/plugin/ai"
	"github.com/hrygo/wingman/plugin/analysis"
	"github.com/hrygo/wingman/plugin/cache"
	"github.com/hrygo/wingman/plugin/dispatch"
	"github.com/hrygo/wingman/plugin/interview"
	"github.com/hrygo/wingman/plugin/media"
	"github.com/hrygo/wingman/plugin/session"
	"github.com/hrygo/wingman/plugin/speech"
	"github.com/hrygo/wingman/plugin/storage"
	"github.com/hrygo/wingman/store"
)

// synthesisTTL keeps synthesized questions for the lifetime of a practice run.
const synthesisTTL = 24 * time.Hour

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Run an interactive interview session, replaying a media file as the camera",
	Long: `Run an interview session. The input file stands in for the camera and microphone.
Press Enter to start an answer and Enter again to finish it; type q to end early.`,
	RunE: runPractice,
}

func init() {
	f := practiceCmd.Flags()
	f.String("input", "", "media file replayed as the live capture (required)")
	f.String("type", "general", "interview type, e.g. behavioral, technical, general")
	f.String("difficulty", "medium", "interview difficulty")
	f.Duration("duration", 45*time.Minute, "session length, 0 for no limit")
	f.Bool("conversational", true, "hold an AI-driven conversation")
	f.Bool("segmented", false, "upload every answer as its own analysis segment")
	f.String("player", "", `audio player command for questions, e.g. "ffplay -nodisp -autoexit -"`)
	f.String("questions", "", "yaml file replacing the built-in fallback questions")
	f.String("storage-backend", "", "recording storage: local or http")
	f.String("upload-url", "", "upload service base URL")
	f.String("analysis-url", "", "analysis trigger URL")
	f.String("results-url", "", `results API base URL, "store" to read the local database`)
	f.String("speech-url", "", "speech service base URL")
	_ = practiceCmd.MarkFlagRequired("input")

	for _, name := range []string{"storage-backend", "upload-url", "analysis-url", "results-url", "speech-url"} {
		if err := viper.BindPFlag(name, f.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func runPractice(cmd *cobra.Command, _ []string) error {
	setupLogger()
	p, err := loadProfile()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	input, _ := flags.GetString("input")
	interviewType, _ := flags.GetString("type")
	difficulty, _ := flags.GetString("difficulty")
	duration, _ := flags.GetDuration("duration")
	conversational, _ := flags.GetBool("conversational")
	segmented, _ := flags.GetBool("segmented")
	playerCmd, _ := flags.GetString("player")
	questions, _ := flags.GetString("questions")

	ctx := cmd.Context()
	st, err := openStore(ctx, p)
	if err != nil {
		return err
	}
	defer st.Close()

	synthCache := cache.NewService(cache.Config{Capacity: 128, DefaultTTL: synthesisTTL})
	defer synthCache.Close()

	sess := interview.Session{
		ID:             "sess_" + shortuuid.New(),
		InterviewType:  interviewType,
		Difficulty:     difficulty,
		Duration:       duration,
		Conversational: conversational,
	}
	out := cmd.OutOrStdout()
	outcomes := make(chan session.Outcome, 1)

	cfg := session.Config{
		Session: sess,
		Media: media.NewController(media.Config{
			Devices: &media.FileDevices{Path: input},
			Encoder: &media.FileEncoder{},
		}),
		Segmented:   segmented,
		Transcripts: session.NewArchive(st, nil),
		Policy: analysis.Policy{
			Interval:    p.PollInterval,
			GraceWindow: p.GraceWindow,
			HardTimeout: p.HardTimeout,
		},
		OnProgress: func(pr analysis.Progress) { fmt.Fprintln(out, mutedStyle.Render(pr.Message)) },
		OnAttempt: func(a dispatch.Attempt) {
			if !a.Succeeded() {
				fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("Analysis request %d/%d failed: %v", a.Number, a.MaxAttempts, a.Err)))
			}
		},
		OnFeedback: func(_ string, feedback string, err error) {
			if err != nil {
				fmt.Fprintln(out, warnStyle.Render("Feedback unavailable: "+err.Error()))
				return
			}
			fmt.Fprintln(out, headerStyle.Render("Feedback"))
			fmt.Fprintln(out, feedback)
		},
		OnComplete: func(o session.Outcome) { outcomes <- o },
	}
	if questions != "" {
		data, err := os.ReadFile(questions)
		if err != nil {
			return errors.Wrapf(err, "failed to read questions %s", questions)
		}
		if cfg.Fallback, err = interview.ParseFallbackBank(data); err != nil {
			return err
		}
	}
	if err := wireCollaborators(&cfg, p, st, synthCache, playerCmd); err != nil {
		return err
	}

	ctrl := session.NewController(cfg)
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Session %s (%s, %s)", sess.ID, sess.InterviewType, sess.Difficulty)))
	if err := ctrl.Start(ctx); err != nil {
		printOutcome(out, <-outcomes)
		return err
	}
	printQuestion(out, ctrl)

	o := drive(ctx, out, ctrl, outcomes)
	printOutcome(out, o)
	<-ctrl.FeedbackDone()
	if o.Status == session.StatusFailed {
		return o.Err
	}
	return nil
}

// wireCollaborators picks the AI provider, the speech service, storage and analysis endpoints
// from the profile.
func wireCollaborators(cfg *session.Config, p *profile.Profile, st *store.Store, synthCache cache.Cache, playerCmd string) error {
	var synth interview.Synthesizer
	if p.IsAIEnabled() {
		provider, err := ai.NewProvider(ai.NewConfigFromProfile(p), ai.WithLogger(slog.Default()))
		if err != nil {
			return err
		}
		cfg.Generator = provider
		cfg.Feedback = provider
		cfg.Transcriber = provider
		synth = provider
	}
	if p.SpeechURL != "" {
		client := speech.NewClient(p.SpeechURL)
		cfg.Transcriber = client
		synth = client
	}
	if synth != nil {
		cfg.Synthesizer = speech.NewCachedSynthesizer(synth, synthCache, synthesisTTL)
	}
	cfg.Player = speech.SilentPlayer{}
	if playerCmd != "" {
		player, err := speech.NewCommandPlayer(playerCmd)
		if err != nil {
			return err
		}
		cfg.Player = player
	}

	switch p.StorageBackend {
	case "http":
		cfg.Uploader = storage.NewHTTPUploader(p.UploadURL, p.APIKey)
	default:
		cfg.Uploader = storage.NewLocalUploader(filepath.Join(p.Data, "recordings"))
	}
	if p.AnalysisURL != "" {
		cfg.Trigger = dispatch.NewHTTPTrigger(p.AnalysisURL, p.APIKey)
	}
	switch p.ResultsURL {
	case "":
	case "store":
		cfg.Source = analysis.NewStoreSource(st)
	default:
		cfg.Source = analysis.NewHTTPSource(p.ResultsURL, p.APIKey)
	}
	return nil
}

// drive toggles answers on every entered line until the session ends.
func drive(ctx context.Context, out io.Writer, ctrl *session.Controller, outcomes <-chan session.Outcome) session.Outcome {
	sig, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	end := func() {
		fmt.Fprintln(out, mutedStyle.Render("Ending session, uploading and analyzing..."))
		go ctrl.End(context.WithoutCancel(ctx))
	}
	answering := false
	for {
		select {
		case o := <-outcomes:
			return o
		case <-sig.Done():
			end()
			sig = context.Background()
		case line, ok := <-lines:
			if !ok {
				lines = nil
				end()
				continue
			}
			if q := strings.TrimSpace(line); q == "q" || q == "quit" {
				end()
				continue
			}
			if !answering {
				if ctrl.BeginAnswer() {
					answering = true
					fmt.Fprintln(out, answerStyle.Render("Recording answer... press Enter when done."))
				} else {
					fmt.Fprintln(out, mutedStyle.Render("Not ready for an answer yet."))
				}
				continue
			}
			answering = false
			if err := ctrl.EndAnswer(ctx); err != nil {
				fmt.Fprintln(out, warnStyle.Render(err.Error()))
			}
			printQuestion(out, ctrl)
		}
	}
}

func printQuestion(out io.Writer, ctrl *session.Controller) {
	engine := ctrl.Engine()
	if engine == nil {
		fmt.Fprintln(out, mutedStyle.Render("Press Enter to start answering."))
		return
	}
	if q := engine.CurrentQuestion(); q != "" {
		fmt.Fprintln(out, questionStyle.Render("Interviewer: ")+q)
	}
}

func printOutcome(out io.Writer, o session.Outcome) {
	style := okStyle
	if o.Status != session.StatusCompleted {
		style = warnStyle
	}
	fmt.Fprintln(out, headerStyle.Render("Session "+o.SessionID)+" "+style.Render(string(o.Status)))
	fmt.Fprintf(out, "%s %v   %s %v   %s %d\n",
		labelStyle.Render("video:"), o.HasVideo,
		labelStyle.Render("conversation:"), o.HasConversation,
		labelStyle.Render("turns:"), len(o.Turns))
	if o.Err != nil {
		fmt.Fprintln(out, warnStyle.Render(o.Err.Error()))
	}
	if o.Blob != nil {
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("Recording kept in memory (%d bytes) but not uploaded.", o.Blob.Len())))
	}
	if o.Report != nil {
		fmt.Fprintln(out, renderReport(o.Report))
	}
}
