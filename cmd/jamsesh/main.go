package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jamsesh/go-jamsesh-client/credentials"
	"github.com/jamsesh/go-jamsesh-client/internal/config"
	"github.com/jamsesh/go-jamsesh-client/internal/utils"
	"github.com/jamsesh/go-jamsesh-client/jams"
	"github.com/jamsesh/go-jamsesh-client/session"
	"github.com/jamsesh/go-jamsesh-client/transport"
	"github.com/jamsesh/go-jamsesh-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cmd := flag.String("cmd", "me", "Command: login|register|logout|me|profile|jams|mine|chat")
	username := flag.String("username", "", "Username (login/register)")
	password := flag.String("password", "", "Password (login/register)")
	email := flag.String("email", "", "Email (register)")
	bio := flag.String("bio", "", "New bio text (profile)")
	location := flag.String("location", "", "New location (profile)")
	jamID := flag.Int64("jam", 0, "Jam ID (chat)")
	serverFlag := flag.String("server", "", "Override API base URL")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	if err := run(*cmd, flags{
		username: *username,
		password: *password,
		email:    *email,
		bio:      *bio,
		location: *location,
		jamID:    *jamID,
		server:   *serverFlag,
		verbose:  *verbose,
	}); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

type flags struct {
	username string
	password string
	email    string
	bio      string
	location string
	jamID    int64
	server   string
	verbose  bool
}

func run(cmd string, f flags) error {
	cfg := config.New()
	logger := newLogger(cfg, f.verbose)

	baseURL := cfg.GetBaseURL()
	if f.server != "" {
		baseURL = strings.TrimRight(f.server, "/")
	}

	store, err := credentials.NewFileStore(cfg.GetCredentialsFile(), cfg.GetCredentialsPassphrase())
	if err != nil {
		return err
	}
	client, err := transport.New(baseURL, store,
		transport.WithLogger(logger),
		transport.WithTimeout(cfg.GetHTTPTimeout()),
	)
	if err != nil {
		return err
	}
	manager, err := session.NewManager(client, store, session.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := manager.Restore(ctx); err != nil {
		return err
	}

	switch cmd {
	case "login":
		if f.username == "" || f.password == "" {
			return fmt.Errorf("--username and --password required")
		}
		if err := manager.Login(ctx, f.username, f.password); err != nil {
			return err
		}
		fmt.Printf("Logged in as %s\n", manager.Session().User.Username)
		return nil
	case "register":
		if f.username == "" || f.password == "" || f.email == "" {
			return fmt.Errorf("--username, --email and --password required")
		}
		if err := manager.Register(ctx, f.username, f.email, f.password, f.password); err != nil {
			return err
		}
		fmt.Printf("Registered and logged in as %s\n", manager.Session().User.Username)
		return nil
	case "logout":
		manager.Logout()
		fmt.Println("Logged out")
		return nil
	case "me":
		return showProfile(manager)
	case "profile":
		return updateProfile(ctx, client, manager, f)
	case "jams":
		return listJams(ctx, client, false)
	case "mine":
		return listJams(ctx, client, true)
	case "chat":
		return followChat(ctx, cfg, client, manager, f.jamID)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func showProfile(manager *session.Manager) error {
	current := manager.Session()
	if !current.Authenticated() {
		fmt.Println("Not logged in")
		return nil
	}
	user := current.User
	fmt.Printf("%s <%s>\n", user.Username, user.Email)
	profile := utils.Value(user.Profile)
	if profile.Instruments != "" {
		fmt.Printf("  plays: %s\n", profile.Instruments)
	}
	if profile.Location != "" {
		fmt.Printf("  from:  %s\n", profile.Location)
	}
	return nil
}

func updateProfile(ctx context.Context, client *transport.Client, manager *session.Manager, f flags) error {
	if !manager.Session().Authenticated() {
		return fmt.Errorf("not logged in")
	}
	if f.bio == "" && f.location == "" {
		return fmt.Errorf("--bio or --location required")
	}

	service, err := users.NewService(client)
	if err != nil {
		return err
	}
	var update users.ProfileUpdate
	if f.bio != "" {
		update.Bio = utils.Ptr(f.bio)
	}
	if f.location != "" {
		update.Location = utils.Ptr(f.location)
	}
	if _, err := service.UpdateProfile(ctx, update); err != nil {
		return err
	}
	if err := manager.RefreshProfile(ctx); err != nil {
		return err
	}
	fmt.Println("Profile updated")
	return nil
}

func listJams(ctx context.Context, client *transport.Client, mineOnly bool) error {
	service, err := jams.NewService(client)
	if err != nil {
		return err
	}
	var list []jams.Jam
	if mineOnly {
		list, err = service.Mine(ctx)
	} else {
		list, err = service.List(ctx)
	}
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No jams found")
		return nil
	}
	for _, jam := range list {
		fmt.Printf("#%d %s | %s/%s at %s on %s (max %d, by %s)\n",
			jam.ID, jam.Title, jam.Genre, jam.SkillLevel, jam.Location,
			jam.DateTime.Local().Format("Mon 2 Jan 15:04"), jam.MaxParticipants, jam.CreatedBy)
	}
	return nil
}

// followChat tails a jam's chat thread until interrupted, polling on the
// configured interval.
func followChat(ctx context.Context, cfg config.Config, client *transport.Client, manager *session.Manager, jamID int64) error {
	if jamID == 0 {
		return fmt.Errorf("--jam required")
	}
	if !manager.Session().Authenticated() {
		return fmt.Errorf("not logged in")
	}

	displayAppname(cfg.GetAppName())

	service, err := jams.NewService(client)
	if err != nil {
		return err
	}

	var lastSeen int64
	subscription, err := service.PollMessages(ctx, jamID, cfg.GetChatPollInterval(), func(messages []jams.Message) {
		for _, msg := range messages {
			if msg.ID <= lastSeen {
				continue
			}
			lastSeen = msg.ID
			fmt.Printf("[%s] %s: %s\n", msg.CreatedAt.Local().Format("15:04"), msg.Sender, msg.Text)
		}
	})
	if err != nil {
		return err
	}
	defer subscription.Stop()

	waitForStopSignal()
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func newLogger(cfg config.Config, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
	if cfg.GetEnv() != "DEV" {
		logger = logger.Output(os.Stderr)
	}
	return logger
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
