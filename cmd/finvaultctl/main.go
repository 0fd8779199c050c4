package main

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/subramanyaSgb/FInVault-sub001/internal/backup"
	"github.com/subramanyaSgb/FInVault-sub001/internal/config"
	cr "github.com/subramanyaSgb/FInVault-sub001/internal/crypto"
	"github.com/subramanyaSgb/FInVault-sub001/internal/fields"
	"github.com/subramanyaSgb/FInVault-sub001/internal/keystore"
	"github.com/subramanyaSgb/FInVault-sub001/internal/session"
	"github.com/subramanyaSgb/FInVault-sub001/internal/storage"
)

// profile is the on-disk identity record: which key id belongs to this
// profile, the salt needed to re-derive the key from a PIN, and a separate
// verifier hash for cheap PIN checks that never touch key material.
type profile struct {
	ProfileID  string `json:"profileId"`
	KeyID      string `json:"keyId"`
	Salt       string `json:"salt"`
	Iterations int    `json:"iterations"`
	PINHash    string `json:"pinHash"`
}

func main() {
	cfgPath := os.Getenv("FINVAULT_CONFIG")
	if cfgPath == "" {
		cfgPath = "finvault.yaml"
	}

	// ---- init ----
	initCmd := flag.NewFlagSet("init", flag.ExitOnError)

	// ---- unlock ----
	unlockCmd := flag.NewFlagSet("unlock", flag.ExitOnError)

	// ---- change-pin ----
	changeCmd := flag.NewFlagSet("change-pin", flag.ExitOnError)

	// ---- lock ----
	lockCmd := flag.NewFlagSet("lock", flag.ExitOnError)

	// ---- encrypt-record ----
	encRecCmd := flag.NewFlagSet("encrypt-record", flag.ExitOnError)
	encRecIn := encRecCmd.String("in", "", "input JSON record")
	encRecOut := encRecCmd.String("out", "", "output JSON record (stdout if empty)")

	// ---- decrypt-record ----
	decRecCmd := flag.NewFlagSet("decrypt-record", flag.ExitOnError)
	decRecIn := decRecCmd.String("in", "", "input JSON record")
	decRecOut := decRecCmd.String("out", "", "output JSON record (stdout if empty)")

	// ---- mask ----
	maskCmd := flag.NewFlagSet("mask", flag.ExitOnError)
	maskValue := maskCmd.String("value", "", "value to mask")
	maskVisible := maskCmd.Int("visible", 4, "trailing characters to keep visible")

	// ---- encrypt-file ----
	encFileCmd := flag.NewFlagSet("encrypt-file", flag.ExitOnError)
	encFileIn := encFileCmd.String("in", "", "input file")
	encFileOut := encFileCmd.String("out", "", "output file (.enc.json)")
	encFileMIME := encFileCmd.String("mime", "application/octet-stream", "MIME type of the input")

	// ---- decrypt-file ----
	decFileCmd := flag.NewFlagSet("decrypt-file", flag.ExitOnError)
	decFileIn := decFileCmd.String("in", "", "input .enc.json file")
	decFileOut := decFileCmd.String("out", "", "output file")

	// ---- export ----
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportData := exportCmd.String("data", "", "JSON file with profile data to export")
	exportOut := exportCmd.String("out", "finvault-backup.json", "backup file to write")

	// ---- import ----
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importIn := importCmd.String("in", "", "backup file to read")
	importOut := importCmd.String("out", "", "JSON file for the restored data (stdout if empty)")

	if len(os.Args) < 2 {
		usage()
		return
	}

	cfg, err := config.Load(cfgPath)
	dieIf(err)
	setupLogging(cfg.LogLevel)

	switch os.Args[1] {
	case "init":
		_ = initCmd.Parse(os.Args[2:])
		dieIf(cmdInit(cfg))

	case "unlock":
		_ = unlockCmd.Parse(os.Args[2:])
		app, err := buildApp(cfg)
		dieIf(err)
		defer app.close()
		dieIf(cmdUnlock(app))

	case "change-pin":
		_ = changeCmd.Parse(os.Args[2:])
		app, err := buildApp(cfg)
		dieIf(err)
		defer app.close()
		dieIf(cmdChangePIN(app))

	case "lock":
		_ = lockCmd.Parse(os.Args[2:])
		app, err := buildApp(cfg)
		dieIf(err)
		defer app.close()
		dieIf(app.sessions.Logout())

	case "encrypt-record":
		_ = encRecCmd.Parse(os.Args[2:])
		app, err := buildApp(cfg)
		dieIf(err)
		defer app.close()
		dieIf(cmdRecord(app, *encRecIn, *encRecOut, true))

	case "decrypt-record":
		_ = decRecCmd.Parse(os.Args[2:])
		app, err := buildApp(cfg)
		dieIf(err)
		defer app.close()
		dieIf(cmdRecord(app, *decRecIn, *decRecOut, false))

	case "mask":
		_ = maskCmd.Parse(os.Args[2:])
		fmt.Println(fields.Mask(*maskValue, *maskVisible))

	case "encrypt-file":
		_ = encFileCmd.Parse(os.Args[2:])
		app, err := buildApp(cfg)
		dieIf(err)
		defer app.close()
		dieIf(cmdEncryptFile(app, *encFileIn, *encFileOut, *encFileMIME))

	case "decrypt-file":
		_ = decFileCmd.Parse(os.Args[2:])
		app, err := buildApp(cfg)
		dieIf(err)
		defer app.close()
		dieIf(cmdDecryptFile(app, *decFileIn, *decFileOut))

	case "export":
		_ = exportCmd.Parse(os.Args[2:])
		dieIf(cmdExport(cfg, *exportData, *exportOut))

	case "import":
		_ = importCmd.Parse(os.Args[2:])
		dieIf(cmdImport(*importIn, *importOut))

	default:
		usage()
	}
}

func usage() {
	fmt.Print(`finvaultctl commands:

  init                                      create a profile and set its PIN
  unlock                                    verify the PIN and start a session
  change-pin                                rotate the PIN and the master key
  lock                                      end the current session
  encrypt-record  --in rec.json [--out f]   encrypt sensitive fields of a record
  decrypt-record  --in rec.json [--out f]   decrypt sensitive fields of a record
  mask            --value 1234567890 [--visible 4]
  encrypt-file    --in doc.pdf --out doc.enc.json [--mime application/pdf]
  decrypt-file    --in doc.enc.json --out doc.pdf
  export          --data data.json [--out finvault-backup.json]
  import          --in finvault-backup.json [--out data.json]

Config is read from $FINVAULT_CONFIG or ./finvault.yaml.
`)
}

// ============ Wiring ============

type appState struct {
	cfg      *config.Config
	keys     *keystore.Manager
	sessions *session.Manager
	session  storage.Store
	persist  storage.Store
}

// buildApp opens both key stores. The session scope lives in its own
// database file so an unlocked session outlives a single invocation and
// expires on schedule.
func buildApp(cfg *config.Config) (*appState, error) {
	secret, err := keystore.LoadOrCreateDeviceSecret(cfg.DeviceSecretFile)
	if err != nil {
		return nil, err
	}
	defer cr.Zero(secret)

	persist, err := storage.NewSQLiteStore(cfg.KeyDBFile)
	if err != nil {
		return nil, err
	}
	sess, err := storage.NewSQLiteStore(filepath.Join(cfg.DataDir, "session.db"))
	if err != nil {
		persist.Close()
		return nil, err
	}

	keys, err := keystore.NewManager(sess, persist, secret)
	if err != nil {
		persist.Close()
		sess.Close()
		return nil, err
	}
	keys.SetSessionTTL(cfg.SessionTTL)

	return &appState{
		cfg:      cfg,
		keys:     keys,
		sessions: session.NewManagerWithLimits(keys, cfg.MaxPINAttempts, cfg.AttemptWindow),
		session:  sess,
		persist:  persist,
	}, nil
}

func (a *appState) close() {
	_ = a.session.Close()
	_ = a.persist.Close()
}

func profilePath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "profile.json")
}

func loadProfile(cfg *config.Config) (*profile, error) {
	b, err := os.ReadFile(profilePath(cfg))
	if err != nil {
		return nil, err
	}
	var p profile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func saveProfile(cfg *config.Config, p *profile) error {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(profilePath(cfg), b, 0o600)
}

// ============ Commands ============

func cmdInit(cfg *config.Config) error {
	if _, err := loadProfile(cfg); err == nil {
		return errors.New("profile already exists; use change-pin to rotate")
	}

	pin, err := promptSecret("Choose a PIN: ")
	if err != nil {
		return err
	}
	again, err := promptSecret("Repeat the PIN: ")
	if err != nil {
		return err
	}
	if pin != again {
		return errors.New("PINs do not match")
	}

	app, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer app.close()

	keyID, key, err := app.sessions.InitializeCryptoSession(pin)
	if err != nil {
		return err
	}
	defer key.Destroy()

	hash, err := cr.HashPIN(pin, cr.DefaultArgon2id)
	if err != nil {
		return err
	}
	p := &profile{
		ProfileID:  uuid.NewString(),
		KeyID:      keyID,
		Salt:       base64.StdEncoding.EncodeToString(key.Salt()),
		Iterations: key.Iterations(),
		PINHash:    hash,
	}
	if err := saveProfile(cfg, p); err != nil {
		return err
	}
	fmt.Println("Profile created:", p.ProfileID)
	return nil
}

func cmdUnlock(app *appState) error {
	key, _, err := unlockKey(app)
	if err != nil {
		return err
	}
	key.Destroy()
	fmt.Println("Unlocked.")
	return nil
}

// unlockKey verifies the PIN against the stored key for the profile,
// falling back to a re-derivation from the profile salt when the key
// store has been wiped.
func unlockKey(app *appState) (*cr.MasterKey, *profile, error) {
	p, err := loadProfile(app.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("no profile (run init first): %w", err)
	}
	salt, err := base64.StdEncoding.DecodeString(p.Salt)
	if err != nil {
		return nil, nil, err
	}

	pin, err := promptSecret("PIN: ")
	if err != nil {
		return nil, nil, err
	}
	key, err := app.sessions.VerifyPINAndGetKey(pin, p.KeyID, salt)
	if err != nil {
		return nil, nil, err
	}
	return key, p, nil
}

func cmdChangePIN(app *appState) error {
	p, err := loadProfile(app.cfg)
	if err != nil {
		return fmt.Errorf("no profile (run init first): %w", err)
	}
	salt, err := base64.StdEncoding.DecodeString(p.Salt)
	if err != nil {
		return err
	}

	oldPin, err := promptSecret("Current PIN: ")
	if err != nil {
		return err
	}
	newPin, err := promptSecret("New PIN: ")
	if err != nil {
		return err
	}
	again, err := promptSecret("Repeat new PIN: ")
	if err != nil {
		return err
	}
	if newPin != again {
		return errors.New("PINs do not match")
	}

	newKey, err := app.sessions.ChangePIN(oldPin, newPin, p.KeyID, salt)
	if err != nil {
		return err
	}
	defer newKey.Destroy()

	hash, err := cr.HashPIN(newPin, cr.DefaultArgon2id)
	if err != nil {
		return err
	}
	p.Salt = base64.StdEncoding.EncodeToString(newKey.Salt())
	p.Iterations = newKey.Iterations()
	p.PINHash = hash
	if err := saveProfile(app.cfg, p); err != nil {
		return err
	}
	fmt.Println("PIN changed. Re-encrypt exported data with the new PIN if needed.")
	return nil
}

func cmdRecord(app *appState, in, out string, encrypt bool) error {
	if in == "" {
		return errors.New("--in required")
	}
	b, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	var record map[string]any
	if err := json.Unmarshal(b, &record); err != nil {
		return err
	}

	key, _, err := unlockKey(app)
	if err != nil {
		return err
	}
	defer key.Destroy()

	var result map[string]any
	if encrypt {
		result, err = fields.EncryptSensitiveFields(record, nil, key)
	} else {
		result, err = fields.DecryptSensitiveFields(record, nil, key)
	}
	if err != nil {
		return err
	}
	return writeJSON(out, result)
}

func cmdEncryptFile(app *appState, in, out, mime string) error {
	if in == "" || out == "" {
		return errors.New("--in and --out required")
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	defer cr.Zero(data)

	key, _, err := unlockKey(app)
	if err != nil {
		return err
	}
	defer key.Destroy()

	blob, err := cr.EncryptBlob(cr.Blob{Data: data, MIMEType: mime, Name: filepath.Base(in)}, key)
	if err != nil {
		return err
	}
	return writeJSON(out, blob)
}

func cmdDecryptFile(app *appState, in, out string) error {
	if in == "" || out == "" {
		return errors.New("--in and --out required")
	}
	b, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	var blob cr.EncryptedBlob
	if err := json.Unmarshal(b, &blob); err != nil {
		return err
	}

	key, _, err := unlockKey(app)
	if err != nil {
		return err
	}
	defer key.Destroy()

	plain, err := cr.DecryptBlob(&blob, key)
	if err != nil {
		return err
	}
	defer cr.Zero(plain.Data)
	return os.WriteFile(out, plain.Data, 0o600)
}

func cmdExport(cfg *config.Config, dataPath, out string) error {
	if dataPath == "" {
		return errors.New("--data required")
	}
	b, err := os.ReadFile(dataPath)
	if err != nil {
		return err
	}
	var data map[string]any
	if err := json.Unmarshal(b, &data); err != nil {
		return err
	}

	p, err := loadProfile(cfg)
	if err != nil {
		return fmt.Errorf("no profile (run init first): %w", err)
	}
	password, err := promptSecret("Backup password: ")
	if err != nil {
		return err
	}

	export, err := backup.EncryptForExport(data, password, p.ProfileID)
	if err != nil {
		return err
	}
	if err := backup.WriteFile(out, export); err != nil {
		return err
	}
	fmt.Println("Backup written:", out)
	return nil
}

func cmdImport(in, out string) error {
	if in == "" {
		return errors.New("--in required")
	}
	export, err := backup.ReadFile(in)
	if err != nil {
		return err
	}
	password, err := promptSecret("Backup password: ")
	if err != nil {
		return err
	}

	var data map[string]any
	if err := backup.DecryptForImport(export, password, &data); err != nil {
		return err
	}
	return writeJSON(out, data)
}

// ============ Utilities ============

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

// promptSecret reads a PIN or password without echo when stdin is a
// terminal, and line-buffered otherwise so the tool stays scriptable.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Println(string(b))
		return nil
	}
	return os.WriteFile(path, b, 0o600)
}

func dieIf(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
