// Command kv-server runs the kv service: TCP with TLS or Noise and
// yamux multiplexing, or native QUIC.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/caelansar/kv"
	"github.com/caelansar/kv/network"
	"github.com/caelansar/kv/service"
	"github.com/caelansar/kv/storage"
)

type config struct {
	Addr        string `koanf:"addr"`
	Transport   string `koanf:"transport"` // tls | noise | quic
	MetricsAddr string `koanf:"metrics_addr"`
	LogLevel    string `koanf:"log_level"`

	TLS struct {
		Cert     string `koanf:"cert"`
		Key      string `koanf:"key"`
		ClientCA string `koanf:"client_ca"`
	} `koanf:"tls"`

	Noise struct {
		PSKFile string `koanf:"psk_file"`
	} `koanf:"noise"`

	Storage struct {
		Backend string `koanf:"backend"` // mem | disk
		Path    string `koanf:"path"`
	} `koanf:"storage"`
}

func defaultConfig() config {
	var cfg config
	cfg.Addr = "127.0.0.1:5000"
	cfg.Transport = "tls"
	cfg.LogLevel = "info"
	cfg.Storage.Backend = "mem"
	return cfg
}

func main() {
	cfg := defaultConfig()
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "kv-server",
		Short:         "Runs the kv server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cc *cobra.Command, args []string) error {
			if configPath != "" {
				// Flags given on the command line take precedence over
				// the file: remember them and re-apply them after loading.
				fs := cc.Flags()
				overrides := make(map[string]string)
				for _, name := range []string{"addr", "transport", "metrics-addr", "log-level", "tls-cert", "tls-key", "tls-client-ca", "psk-file", "storage", "storage-path"} {
					if fs.Changed(name) {
						overrides[name] = fs.Lookup(name).Value.String()
					}
				}
				k := koanf.New(".")
				if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
					return errors.Wrap(err, "load config")
				}
				if err := k.Unmarshal("", &cfg); err != nil {
					return errors.Wrap(err, "parse config")
				}
				for name, value := range overrides {
					if err := fs.Set(name, value); err != nil {
						return errors.Wrapf(err, "flag %s", name)
					}
				}
			}
			return run(cfg)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	flags.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport: tls, noise or quic")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Prometheus metrics listen address (disabled when empty)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	flags.StringVar(&cfg.TLS.Cert, "tls-cert", "", "Server certificate (PEM)")
	flags.StringVar(&cfg.TLS.Key, "tls-key", "", "Server key (PEM)")
	flags.StringVar(&cfg.TLS.ClientCA, "tls-client-ca", "", "Client CA bundle enabling mTLS (PEM)")
	flags.StringVar(&cfg.Noise.PSKFile, "psk-file", "", "File holding the 32-byte Noise pre-shared key")
	flags.StringVar(&cfg.Storage.Backend, "storage", cfg.Storage.Backend, "Storage backend: mem or disk")
	flags.StringVar(&cfg.Storage.Path, "storage-path", "", "Data directory for the disk backend")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cfg config) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	log := zerolog.New(zerolog.NewConsoleWriter()).Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	svc := service.New(store,
		service.WithLogger(log),
		service.WithRegisterer(prometheus.DefaultRegisterer),
	)
	srv := kv.NewServer(svc, kv.WithServerLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		g.Go(func() error { return serveMetrics(ctx, cfg.MetricsAddr) })
	}

	switch cfg.Transport {
	case "tls":
		acceptor, err := newTLSServer(cfg)
		if err != nil {
			return err
		}
		ln, err := net.Listen("tcp", cfg.Addr)
		if err != nil {
			return errors.Wrap(err, "listen")
		}
		log.Info().Str("addr", cfg.Addr).Str("transport", "tls").Msg("start listening")
		g.Go(func() error { return srv.ServeTCP(ctx, ln, acceptor) })
	case "noise":
		psk, err := os.ReadFile(cfg.Noise.PSKFile)
		if err != nil {
			return errors.Wrap(err, "read psk")
		}
		acceptor, err := network.NewNoiseServer(psk)
		if err != nil {
			return err
		}
		ln, err := net.Listen("tcp", cfg.Addr)
		if err != nil {
			return errors.Wrap(err, "listen")
		}
		log.Info().Str("addr", cfg.Addr).Str("transport", "noise").Msg("start listening")
		g.Go(func() error { return srv.ServeTCP(ctx, ln, acceptor) })
	case "quic":
		tlsServer, err := newTLSServer(cfg)
		if err != nil {
			return err
		}
		ln, err := network.ListenQUIC(cfg.Addr, tlsServer.TLSConfig())
		if err != nil {
			return err
		}
		log.Info().Str("addr", cfg.Addr).Str("transport", "quic").Msg("start listening")
		g.Go(func() error { return srv.ServeQUIC(ctx, ln) })
	default:
		return errors.Newf("unknown transport %q", cfg.Transport)
	}
	return g.Wait()
}

func newStore(cfg config) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "mem":
		return storage.NewMemTable(), nil
	case "disk":
		if cfg.Storage.Path == "" {
			return nil, errors.New("disk storage requires --storage-path")
		}
		return storage.NewDiskStore(cfg.Storage.Path), nil
	default:
		return nil, errors.Newf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func newTLSServer(cfg config) (*network.TLSServer, error) {
	cert, err := os.ReadFile(cfg.TLS.Cert)
	if err != nil {
		return nil, errors.Wrap(err, "read tls cert")
	}
	key, err := os.ReadFile(cfg.TLS.Key)
	if err != nil {
		return nil, errors.Wrap(err, "read tls key")
	}
	var clientCA []byte
	if cfg.TLS.ClientCA != "" {
		if clientCA, err = os.ReadFile(cfg.TLS.ClientCA); err != nil {
			return nil, errors.Wrap(err, "read client ca")
		}
	}
	return network.NewTLSServer(cert, key, clientCA)
}

func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "metrics listener")
	}
	return nil
}
