package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mailit-dev/gomail/address"
	"github.com/mailit-dev/gomail/composer"
	"github.com/mailit-dev/gomail/internal/config"
	"github.com/mailit-dev/gomail/internal/observability"
	"github.com/mailit-dev/gomail/mailer"
	"github.com/mailit-dev/gomail/mime"
	"github.com/mailit-dev/gomail/pool"
	"github.com/mailit-dev/gomail/smtp"
	"github.com/mailit-dev/gomail/transport"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	configPath := ""

	switch os.Args[1] {
	case "send":
		sendCmd := flag.NewFlagSet("send", flag.ExitOnError)
		sendCmd.StringVar(&configPath, "config", "", "config file path")
		from := sendCmd.String("from", "", "From address (overrides defaults.from)")
		to := sendCmd.String("to", "", "comma-separated To addresses")
		cc := sendCmd.String("cc", "", "comma-separated Cc addresses")
		bcc := sendCmd.String("bcc", "", "comma-separated Bcc addresses")
		subject := sendCmd.String("subject", "", "Subject line")
		text := sendCmd.String("text", "", `plain-text body; "-" reads stdin`)
		html := sendCmd.String("html", "", "HTML body")
		htmlFile := sendCmd.String("html-file", "", "read the HTML body from a file")
		sink := sendCmd.String("sink", "smtp", "delivery sink: smtp, json, buffer, sendmail")
		var attach stringList
		sendCmd.Var(&attach, "attach", "attachment file path (repeatable)")
		sendCmd.Parse(os.Args[2:])
		runSend(configPath, sendOptions{
			from: *from, to: *to, cc: *cc, bcc: *bcc,
			subject: *subject, text: *text, html: *html, htmlFile: *htmlFile,
			sink: *sink, attachments: attach,
		})
	case "verify":
		verifyCmd := flag.NewFlagSet("verify", flag.ExitOnError)
		verifyCmd.StringVar(&configPath, "config", "", "config file path")
		verifyCmd.Parse(os.Args[2:])
		runVerify(configPath)
	case "dkim-keygen":
		keygenCmd := flag.NewFlagSet("dkim-keygen", flag.ExitOnError)
		bits := keygenCmd.Int("bits", 2048, "RSA key size in bits")
		keygenCmd.Parse(os.Args[2:])
		runDKIMKeygen(*bits)
	case "version":
		fmt.Println("gomailctl", Version)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: gomailctl <command> [flags]

commands:
  send         compose and deliver a message
  verify       open a connection, authenticate, and QUIT
  dkim-keygen  generate a DKIM RSA key pair
  version      print the version`)
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

type sendOptions struct {
	from, to, cc, bcc   string
	subject, text, html string
	htmlFile, sink      string
	attachments         []string
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	return cfg
}

// buildPool turns the transport config into a dialing, authenticated pool.
func buildPool(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*pool.Pool, error) {
	urlOpts, err := transport.ParseURL(cfg.Transport.URL)
	if err != nil {
		return nil, err
	}

	smtpOpts := smtp.Options{
		Host:              urlOpts.Host,
		Port:              urlOpts.Port,
		Secure:            urlOpts.Secure,
		RequireTLS:        cfg.Transport.TLSPolicy == "require",
		IgnoreTLS:         cfg.Transport.TLSPolicy == "ignore",
		Opportunistic:     cfg.Transport.TLSPolicy == "opportunistic",
		ConnectionTimeout: cfg.Transport.ConnectTimeout,
		GreetingTimeout:   cfg.Transport.GreetingTimeout,
		SocketTimeout:     cfg.Transport.SocketTimeout,
		DNSTimeout:        cfg.Transport.DNSTimeout,
		Name:              cfg.Transport.Name,
		LMTP:              cfg.Transport.LMTP,
	}
	if v, ok := urlOpts.TLS["rejectUnauthorized"]; ok {
		if reject, ok := v.(bool); ok && !reject {
			smtpOpts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
		}
	}

	var creds *smtp.Credentials
	if urlOpts.Username != "" {
		creds = &smtp.Credentials{Username: urlOpts.Username, Password: urlOpts.Password}
	}

	var metrics pool.Metrics
	if reg != nil {
		metrics = pool.NewPrometheusMetrics(reg)
	}

	dial := func(ctx context.Context) (*smtp.Client, error) {
		return smtp.Dial(ctx, smtpOpts)
	}
	return pool.New(pool.Config{
		MaxConnections: cfg.Pool.MaxConnections,
		MaxMessages:    cfg.Pool.MaxMessages,
		RateLimit:      cfg.Pool.RateLimit,
		RateDelta:      cfg.Pool.RateWindow,
		MaxRequeues:    cfg.Pool.MaxRequeues,
	}, dial, creds, logger, metrics), nil
}

func buildTransport(cfg *config.Config, sink string, logger *slog.Logger, reg prometheus.Registerer) (transport.Transport, func(), error) {
	switch sink {
	case "smtp":
		p, err := buildPool(cfg, logger, reg)
		if err != nil {
			return nil, nil, err
		}
		return transport.NewSMTP(p), func() { _ = p.Close() }, nil
	case "json":
		return &transport.JSON{}, func() {}, nil
	case "buffer":
		return &transport.Stream{Buffer: true}, func() {}, nil
	case "sendmail":
		return &transport.Sendmail{Path: cfg.Transport.SendmailPath}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink %q", sink)
	}
}

func runSend(configPath string, opts sendOptions) {
	cfg := loadConfig(configPath)
	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Observability.TraceEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, observability.TracingConfig{
			Endpoint:    cfg.Observability.TraceEndpoint,
			SampleRate:  cfg.Observability.SampleRate,
			ServiceName: cfg.Observability.ServiceName,
			Insecure:    cfg.Observability.Insecure,
		})
		if err != nil {
			logger.Error("init tracer", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			_ = shutdown(shutdownCtx)
		}()
	}

	var reg *prometheus.Registry
	var metrics *observability.Metrics
	if cfg.Observability.MetricsAddr != "" {
		reg = prometheus.NewRegistry()
		metrics = observability.NewMetrics(reg)
		srv := observability.NewMetricsServer(cfg.Observability.MetricsAddr, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	md, err := buildMailDescription(cfg, opts)
	if err != nil {
		logger.Error("build message", "error", err)
		os.Exit(1)
	}

	var poolReg prometheus.Registerer
	if reg != nil {
		poolReg = reg
	}
	tr, closeTransport, err := buildTransport(cfg, opts.sink, logger, poolReg)
	if err != nil {
		logger.Error("configure transport", "error", err)
		os.Exit(1)
	}
	defer closeTransport()

	mailerCfg := mailer.Config{Transport: tr}
	if cfg.DKIM.Enabled() {
		keyPEM, err := os.ReadFile(cfg.DKIM.KeyFile)
		if err != nil {
			logger.Error("read DKIM key", "error", err)
			os.Exit(1)
		}
		mailerCfg.DKIM = &mailer.DKIMConfig{
			Domain:        cfg.DKIM.Domain,
			Selector:      cfg.DKIM.Selector,
			PrivateKeyPEM: string(keyPEM),
		}
	}

	m, err := mailer.New(mailerCfg, logger)
	if err != nil {
		logger.Error("configure mailer", "error", err)
		os.Exit(1)
	}

	start := time.Now()
	result, err := m.SendMail(ctx, md)
	if metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.ObserveSend(status, time.Since(start).Seconds(), result.MessageSize)
	}
	if err != nil {
		logger.Error("send failed", "error", err, "rejected", result.Rejected)
		os.Exit(1)
	}

	switch opts.sink {
	case "json", "buffer":
		os.Stdout.Write(result.Raw)
		if len(result.Raw) > 0 && result.Raw[len(result.Raw)-1] != '\n' {
			fmt.Println()
		}
	default:
		logger.Info("sent",
			"message_id", result.MessageID,
			"accepted", result.Accepted,
			"rejected", result.Rejected,
			"size", result.MessageSize,
			"message_time", result.MessageTime,
		)
	}
}

func buildMailDescription(cfg *config.Config, opts sendOptions) (composer.MailDescription, error) {
	from := opts.from
	if from == "" {
		from = cfg.Defaults.From
	}
	if from == "" {
		return composer.MailDescription{}, fmt.Errorf("no From address: pass -from or set defaults.from")
	}
	if opts.to == "" {
		return composer.MailDescription{}, fmt.Errorf("no To address: pass -to")
	}

	md := composer.MailDescription{
		From:              address.Parse(from),
		To:                address.ParseList(opts.to),
		Subject:           opts.subject,
		XMailer:           cfg.Defaults.XMailer,
		DisableFileAccess: cfg.Transport.DisableFileAccess,
		DisableURLAccess:  cfg.Transport.DisableURLAccess,
	}
	if opts.cc != "" {
		md.Cc = address.ParseList(opts.cc)
	}
	if opts.bcc != "" {
		md.Bcc = address.ParseList(opts.bcc)
	}

	switch {
	case opts.text == "-":
		body, err := io.ReadAll(os.Stdin)
		if err != nil {
			return composer.MailDescription{}, fmt.Errorf("reading stdin: %w", err)
		}
		md.Text = string(body)
	case opts.text != "":
		md.Text = opts.text
	}

	switch {
	case opts.htmlFile != "":
		body, err := os.ReadFile(opts.htmlFile)
		if err != nil {
			return composer.MailDescription{}, fmt.Errorf("reading HTML body: %w", err)
		}
		md.HTML = string(body)
	case opts.html != "":
		md.HTML = opts.html
	}

	if md.Text == "" && md.HTML == "" {
		return composer.MailDescription{}, fmt.Errorf("no body: pass -text or -html")
	}

	for _, path := range opts.attachments {
		md.Attachments = append(md.Attachments, composer.Attachment{
			Content: mime.ContentSpec{Path: path},
		})
	}

	return md, nil
}

func runVerify(configPath string) {
	cfg := loadConfig(configPath)
	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)

	p, err := buildPool(cfg, logger, nil)
	if err != nil {
		logger.Error("configure pool", "error", err)
		os.Exit(1)
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Transport.ConnectTimeout+cfg.Transport.GreetingTimeout)
	defer cancel()

	if err := p.Verify(ctx); err != nil {
		logger.Error("verify failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("ok")
}

func runDKIMKeygen(bits int) {
	privPEM, pubBase64, err := mailer.GenerateDKIMKeyPair(bits)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	fmt.Print(privPEM)
	fmt.Fprintf(os.Stderr, "\nDNS TXT record value:\n  v=DKIM1; k=rsa; p=%s\n", pubBase64)
}
