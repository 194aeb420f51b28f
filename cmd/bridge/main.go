// Package main runs the messenger bridge: it watches a business inbox
// tab for unread customer messages, forwards each one to an assistant,
// and places the reply back into the conversation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/bridge"
	appconfig "github.com/sifact/gpt-messenger-bridge-plugin/pkg/config"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/logging"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/pages/assistant"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/pages/browser"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/pages/inbox"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/pages/profile"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/protocol"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	ProfileFile string
	CDPAddress  string
	Headless    bool
	Enable      bool
	Partial     bool
	ShowVersion bool
}

func main() {
	config := parseFlags()

	if config.ShowVersion {
		fmt.Printf("Messenger Bridge v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, config); err != nil {
		cancel()
		log.Printf("Bridge failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	config := &CLIConfig{}

	flag.StringVar(&config.ConfigFile, "config", "", "Path to configuration file (default ~/.gpt-bridge/config.json)")
	flag.StringVar(&config.ProfileFile, "profile", "", "Path to a YAML selector profile override")
	flag.StringVar(&config.CDPAddress, "cdp", "http://127.0.0.1:9222", "DevTools endpoint of the logged-in browser (empty to launch a browser)")
	flag.BoolVar(&config.Headless, "headless", false, "Run a launched browser headless (ignored with -cdp)")
	flag.BoolVar(&config.Enable, "enable", false, "Enable automation for this run regardless of saved settings")
	flag.BoolVar(&config.Partial, "partial", false, "Stage replies for review instead of sending them")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Messenger Bridge - inbox to assistant relay\n\n")
		fmt.Fprintf(os.Stderr, "Usage: bridge [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Attach to a browser started with --remote-debugging-port=9222\n")
		fmt.Fprintf(os.Stderr, "  bridge -enable\n\n")
		fmt.Fprintf(os.Stderr, "  # Draft replies without sending them\n")
		fmt.Fprintf(os.Stderr, "  bridge -enable -partial\n\n")
	}

	flag.Parse()
	return config
}

func run(ctx context.Context, cliConfig *CLIConfig) error {
	if err := appconfig.Initialize(cliConfig.ConfigFile); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	automation := appconfig.GetAutomation()
	assistantCfg := appconfig.GetAssistant()

	// CLI flags override the saved settings for this run only.
	if cliConfig.Enable {
		automation.SetAutomationEnabled(true)
	}
	if cliConfig.Partial {
		automation.SetPartialAutomation(true)
	}

	prof, err := loadProfile(cliConfig, assistantCfg)
	if err != nil {
		return err
	}

	mainLog, err := logging.NewLogger("main")
	if err != nil {
		log.Printf("File logging unavailable: %v", err)
	}
	defer mainLog.Close()
	mainLog.Infof("Bridge v%s starting (session %s)", version, logging.SessionID())

	manager := browser.NewManager(browser.Options{
		CDPAddress: cliConfig.CDPAddress,
		Headless:   cliConfig.Headless,
	})
	if err := manager.Initialize(); err != nil {
		return err
	}
	defer manager.Shutdown()

	inboxSession, err := manager.FindPage(prof.MatchesInbox)
	if err != nil {
		return fmt.Errorf("no inbox tab found (pattern %s): open the inbox and log in first", prof.InboxURL)
	}
	mainLog.Infof("Using inbox tab %s", inboxSession.URL())

	inboxPage := inbox.NewPage(inboxSession, prof, mainLog)

	assistantPort, err := buildAssistant(manager, prof, assistantCfg, mainLog)
	if err != nil {
		return err
	}

	dedupe := bridge.NewDedupeCache()
	broker := bridge.NewBroker(assistantPort, 0, mainLog)
	pipeline := bridge.NewPipeline(inboxPage, dedupe, 0, mainLog)
	scheduler := bridge.NewScheduler(inboxPage, broker, pipeline, dedupe, automation, bridge.Timings{
		PollInterval:  automation.GetPollInterval(),
		QuestionDelay: automation.GetQuestionDelay(),
	}, mainLog)
	dispatcher := bridge.NewDispatcher(broker, scheduler, assistantPort, mainLog)

	// Saved settings changes flow to the scheduler through the protocol
	// surface, same as an extension popup would send them.
	appconfig.Global().Subscribe(func() {
		dispatcher.Handle(ctx, protocol.Request{Action: protocol.ActionSettingsUpdated})
	})

	watchResume(ctx, inboxPage, scheduler, dispatcher, mainLog)

	mainLog.Infof("Scanning every %s (enabled=%v partial=%v)",
		automation.GetPollInterval(), automation.AutomationEnabled(), automation.PartialAutomation())

	scheduler.Run(ctx)
	mainLog.Infof("Bridge stopped")
	return nil
}

// watchResume provides the two ways to lift a partial-mode pause:
// SIGUSR1, and a "Next" button placed on the inbox page while a staged
// draft waits for review. Both feed the dispatcher's resume action.
func watchResume(ctx context.Context, inboxPage *inbox.Page, scheduler *bridge.Scheduler, dispatcher *bridge.Dispatcher, mainLog *logging.Logger) {
	resumeSig := make(chan os.Signal, 1)
	signal.Notify(resumeSig, syscall.SIGUSR1)

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-resumeSig:
				mainLog.Infof("Resume requested via signal")
				dispatcher.Handle(ctx, protocol.Request{Action: protocol.ActionResume})
			case <-ticker.C:
				if !scheduler.Paused() {
					continue
				}
				if err := inboxPage.InstallResumeControl(); err != nil {
					mainLog.Debugf("Resume control unavailable: %v", err)
					continue
				}
				if inboxPage.ConsumeResumeRequest() {
					mainLog.Infof("Resume requested from the inbox page")
					dispatcher.Handle(ctx, protocol.Request{Action: protocol.ActionResume})
				}
			}
		}
	}()
}

// loadProfile assembles the selector profile: file override first, then
// URL patterns from the saved configuration.
func loadProfile(cliConfig *CLIConfig, assistantCfg *appconfig.AssistantSection) (*profile.SiteProfile, error) {
	path := cliConfig.ProfileFile
	if path == "" {
		path = assistantCfg.GetProfilePath()
	}

	var prof *profile.SiteProfile
	if path != "" {
		loaded, err := profile.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load selector profile: %w", err)
		}
		prof = loaded
	} else {
		prof = profile.Default()
	}

	if pattern := assistantCfg.GetInboxURLGlob(); pattern != "" {
		if err := prof.SetInboxURL(pattern); err != nil {
			return nil, err
		}
	}
	if pattern := assistantCfg.GetAssistantURLGlob(); pattern != "" {
		if err := prof.SetAssistantURL(pattern); err != nil {
			return nil, err
		}
	}
	return prof, nil
}

// buildAssistant selects the answer backend: a logged-in assistant tab,
// or the API when a key is configured.
func buildAssistant(manager *browser.Manager, prof *profile.SiteProfile, cfg *appconfig.AssistantSection, log *logging.Logger) (bridge.AssistantPort, error) {
	switch cfg.GetBackend() {
	case appconfig.BackendAPI:
		log.Infof("Using API assistant backend (model %s)", cfg.GetModel())
		return assistant.NewAPIDriver(cfg.GetAPIKey(), cfg.GetModel(), log), nil
	case appconfig.BackendPage:
		session, err := manager.FindPage(prof.MatchesAssistant)
		if err != nil {
			return nil, fmt.Errorf("no assistant tab found (pattern %s): open the assistant and log in first", prof.AssistantURL)
		}
		log.Infof("Using assistant tab %s", session.URL())
		return assistant.NewPageDriver(session, prof, log), nil
	default:
		return nil, fmt.Errorf("unknown assistant backend %q", cfg.GetBackend())
	}
}
