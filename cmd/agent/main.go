// The agent is a small terminal companion to the web app: it signs in,
// selects an organization, lists the service catalog and opens services
// by forwarding their decrypted cookies to the browser extension.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/sessionshare/session-share/client"
	"github.com/sessionshare/session-share/client/bridge"
	"github.com/sessionshare/session-share/client/handoff"
	"github.com/sessionshare/session-share/client/ops"
	"github.com/sessionshare/session-share/client/policy"
	"github.com/sessionshare/session-share/client/state"
	"github.com/sessionshare/session-share/internal/pkg/cookiecipher"
)

func main() {
	var (
		baseURL  = flag.String("api", envOr("SESSION_SHARE_API", "http://localhost:8080"), "backend base URL")
		endpoint = flag.String("bridge", envOr("SESSION_SHARE_BRIDGE", ""), "extension broadcast endpoint")
		extID    = flag.String("extension-id", envOr("SESSION_SHARE_EXTENSION_ID", ""), "browser extension id")
	)
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	storage, err := state.NewFileStorage(stateDir())
	if err != nil {
		log.Fatalf("failed to open state storage: %v", err)
	}
	store := state.NewStore(storage)

	api := client.New(*baseURL)
	if token := store.State().Auth.Token; token != "" {
		api.SetSession(token)
	}
	operations := ops.New(api, store)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var cmdErr error
	switch cmd := flag.Arg(0); cmd {
	case "login":
		cmdErr = runLogin(ctx, operations)
	case "logout":
		cmdErr = operations.SignOut(ctx)
	case "whoami":
		cmdErr = runWhoami(store)
	case "select":
		cmdErr = runSelect(ctx, operations, flag.Arg(1))
	case "services":
		cmdErr = runServices(ctx, api, store)
	case "open":
		cmdErr = runOpen(ctx, api, store, *extID, *endpoint, flag.Arg(1))
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if cmdErr != nil {
		log.Fatalf("%s: %v", flag.Arg(0), cmdErr)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: agent [flags] <command>

commands:
  login              sign in with email and password
  logout             close the session
  whoami             show the signed-in identity and organizations
  select <org-id>    select an organization
  services           list the selected organization's services
  open <service-id>  open a service via the browser extension`)
	flag.PrintDefaults()
}

func runLogin(ctx context.Context, operations *ops.Operations) error {
	email := prompt("email: ")
	password := prompt("password: ")
	return operations.SignIn(ctx, email, password)
}

func runWhoami(store *state.Store) error {
	auth := store.State().Auth
	if !auth.Authenticated || auth.User == nil {
		return fmt.Errorf("not signed in")
	}
	fmt.Printf("%s (%s)\n", auth.User.Email, auth.User.ID)
	for _, org := range auth.User.Organizations {
		fmt.Printf("  %s  %s  role=%s\n", org.ID, org.Name, org.Role)
	}
	return nil
}

func runSelect(ctx context.Context, operations *ops.Operations, orgID string) error {
	if orgID == "" {
		return fmt.Errorf("organization id is required")
	}
	return operations.SelectOrganization(ctx, orgID)
}

func runServices(ctx context.Context, api *client.Client, store *state.Store) error {
	st := store.State()
	sel := st.Organization.Selected
	if sel == nil {
		return fmt.Errorf("no organization selected")
	}

	userID := ""
	if st.Auth.User != nil {
		userID = st.Auth.User.ID
	}
	fmt.Printf("%s (your role: %s)\n", sel.Name, policy.Derive(userID, sel).Role())

	services, err := api.Services(ctx, sel.ID)
	if err != nil {
		return err
	}
	for _, svc := range services {
		fmt.Printf("  %s  %s  %s\n", svc.ID, svc.Name, svc.Domain)
	}
	return nil
}

func runOpen(ctx context.Context, api *client.Client, store *state.Store, extID, endpoint, serviceID string) error {
	if serviceID == "" {
		return fmt.Errorf("service id is required")
	}
	sel := store.State().Organization.Selected
	if sel == nil {
		return fmt.Errorf("no organization selected")
	}

	b := bridge.Detect(
		bridge.NewNativeBridge(nativeHostWriter(extID), extID),
		bridge.NewBroadcastBridge(endpoint),
	)
	if b == nil {
		return fmt.Errorf("no extension bridge configured")
	}

	coordinator := handoff.NewCoordinator(api, cookiecipher.New(), b)
	coordinator.OnPhase = func(id string, phase handoff.Phase) {
		log.Printf("[handoff] %s: %s", id, phase)
	}
	return coordinator.Open(ctx, sel.ID, serviceID)
}

// nativeHostWriter returns the frame sink for the native messaging
// bridge. When the agent itself runs as the extension's native host,
// frames go to stdout; otherwise there is no native transport.
func nativeHostWriter(extID string) io.Writer {
	if extID == "" {
		return nil
	}
	return os.Stdout
}

func stateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "session-share")
	}
	return ".session-share"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func prompt(label string) string {
	fmt.Print(label)
	var value string
	fmt.Scanln(&value)
	return value
}
