package app

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestWatchCommand(t *testing.T) {
	if watchCmd.Use != "watch" {
		t.Errorf("expected Use to be 'watch', got '%s'", watchCmd.Use)
	}

	if watchCmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if watchCmd.Long == "" {
		t.Error("expected Long description to be set")
	}

	if watchCmd.Example == "" {
		t.Error("expected Example to be set")
	}

	if watchCmd.RunE == nil {
		t.Error("expected RunE to be set")
	}
}

func TestWatchCommandFlags(t *testing.T) {
	tests := []struct {
		name         string
		flagName     string
		shouldHidden bool
	}{
		{name: "daemon flag", flagName: "daemon"},
		{name: "daemon-child flag", flagName: "daemon-child", shouldHidden: true},
		{name: "pid-file flag", flagName: "pid-file"},
		{name: "log-file flag", flagName: "log-file"},
		{name: "stop flag", flagName: "stop"},
		{name: "quiet flag", flagName: "quiet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := watchCmd.Flags().Lookup(tt.flagName)
			if flag == nil {
				t.Fatalf("expected flag '%s' to be registered", tt.flagName)
			}

			if !tt.shouldHidden && flag.Usage == "" {
				t.Errorf("expected flag '%s' to have usage text", tt.flagName)
			}

			if flag.Hidden != tt.shouldHidden {
				t.Errorf("expected flag '%s' hidden to be %v, got %v", tt.flagName, tt.shouldHidden, flag.Hidden)
			}
		})
	}
}

func resetWatchFlags() {
	watchDaemon = false
	watchDaemonChild = false
	watchPIDFile = ""
	watchLogFile = ""
	watchStop = false
	watchQuiet = false
}

func TestWatchCommandFlagParsing(t *testing.T) {
	tests := []struct {
		name            string
		args            []string
		expectedDaemon  bool
		expectedStop    bool
		expectedPIDFile string
		expectedLogFile string
	}{
		{
			name: "default flags",
			args: []string{},
		},
		{
			name:           "daemon mode",
			args:           []string{"--daemon"},
			expectedDaemon: true,
		},
		{
			name:         "stop daemon",
			args:         []string{"--stop"},
			expectedStop: true,
		},
		{
			name:            "daemon with custom files",
			args:            []string{"--daemon", "--pid-file=/tmp/test.pid", "--log-file=/tmp/test.log"},
			expectedDaemon:  true,
			expectedPIDFile: "/tmp/test.pid",
			expectedLogFile: "/tmp/test.log",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetWatchFlags()
			defer resetWatchFlags()

			if err := watchCmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}

			if watchDaemon != tt.expectedDaemon {
				t.Errorf("expected daemon to be %v, got %v", tt.expectedDaemon, watchDaemon)
			}
			if watchStop != tt.expectedStop {
				t.Errorf("expected stop to be %v, got %v", tt.expectedStop, watchStop)
			}
			if watchPIDFile != tt.expectedPIDFile {
				t.Errorf("expected pid-file to be '%s', got '%s'", tt.expectedPIDFile, watchPIDFile)
			}
			if watchLogFile != tt.expectedLogFile {
				t.Errorf("expected log-file to be '%s', got '%s'", tt.expectedLogFile, watchLogFile)
			}
		})
	}
}

func TestDaemonChildArgs(t *testing.T) {
	setupEnv(t)
	resetWatchFlags()
	defer resetWatchFlags()

	watchPIDFile = "/tmp/w.pid"
	args := daemonChildArgs()
	if strings.Join(args, " ") != "watch --daemon-child --pid-file /tmp/w.pid" {
		t.Errorf("daemonChildArgs() = %v", args)
	}

	configPath = "/etc/camwatch.toml"
	dbPath = "/tmp/c.db"
	args = daemonChildArgs()
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--config /etc/camwatch.toml") {
		t.Errorf("expected --config to be forwarded, got %v", args)
	}
	if !strings.Contains(joined, "--db /tmp/c.db") {
		t.Errorf("expected --db to be forwarded, got %v", args)
	}
}

func TestRunWatch_StopWithoutDaemon(t *testing.T) {
	dataDir := setupEnv(t)
	resetWatchFlags()
	defer resetWatchFlags()
	watchStop = true

	out := captureStdout(t, func() {
		if err := runWatch(watchCmd, nil); err != nil {
			t.Errorf("runWatch(--stop) error = %v", err)
		}
	})

	if !strings.Contains(out, "Daemon is not running") {
		t.Errorf("expected 'Daemon is not running', got:\n%s", out)
	}
	if watchPIDFile != filepath.Join(dataDir, "watch.pid") {
		t.Errorf("pid file defaulted to %q", watchPIDFile)
	}
	if _, err := os.Stat(dataDir); err != nil {
		t.Errorf("expected data dir to be created: %v", err)
	}
}

func TestRunWatch_StartWhileRunning(t *testing.T) {
	dataDir := setupEnv(t)
	resetWatchFlags()
	defer resetWatchFlags()

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatal(err)
	}
	// The test process itself stands in for a live daemon.
	pidFile := filepath.Join(dataDir, "watch.pid")
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	watchDaemon = true

	err := runWatch(watchCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Errorf("runWatch(--daemon) error = %v, want 'already running'", err)
	}
}

func TestNewSession(t *testing.T) {
	setupEnv(t)
	resetWatchFlags()
	defer resetWatchFlags()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	seedStore(t, cfg.Database)

	st, err := openStore(cfg)
	if err != nil {
		t.Fatalf("openStore() error = %v", err)
	}
	defer st.Close()

	session, err := newSession(cfg, st)
	if err != nil {
		t.Fatalf("newSession() error = %v", err)
	}
	if session.ID == "" {
		t.Error("expected session id to be set")
	}
}
