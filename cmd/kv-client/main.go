// Command kv-client issues commands against a kv server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/caelansar/kv"
	"github.com/caelansar/kv/network"
	"github.com/caelansar/kv/pb"
)

var (
	addr       string
	transport  string
	serverName string
	caFile     string
	certFile   string
	keyFile    string
	pskFile    string
	table      string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "kv-client",
		Short:         "Issues commands against a kv server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&addr, "addr", "127.0.0.1:5000", "Server address")
	pf.StringVar(&transport, "transport", "tls", "Transport: tls, noise or quic")
	pf.StringVar(&serverName, "server-name", "kv.test.com", "Expected TLS server name")
	pf.StringVar(&caFile, "ca", "", "Server CA bundle (PEM)")
	pf.StringVar(&certFile, "cert", "", "Client certificate for mTLS (PEM)")
	pf.StringVar(&keyFile, "key", "", "Client key for mTLS (PEM)")
	pf.StringVar(&pskFile, "psk-file", "", "File holding the 32-byte Noise pre-shared key")
	pf.StringVarP(&table, "table", "t", "default", "Table to operate on")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(
		oneShot("get <key>", 1, func(args []string) *pb.CommandRequest { return pb.NewHget(table, args[0]) }),
		oneShot("set <key> <value>", 2, func(args []string) *pb.CommandRequest {
			return pb.NewHset(table, args[0], pb.StringValue(args[1]))
		}),
		oneShot("del <key>", 1, func(args []string) *pb.CommandRequest { return pb.NewHdel(table, args[0]) }),
		oneShot("exist <key>", 1, func(args []string) *pb.CommandRequest { return pb.NewHexist(table, args[0]) }),
		oneShot("getall", 0, func(args []string) *pb.CommandRequest { return pb.NewHgetall(table) }),
		publishCmd(),
		subscribeCmd(),
		unsubscribeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func dial(ctx context.Context) (*kv.Client, error) {
	log := zerolog.Nop()
	if verbose {
		log = zerolog.New(zerolog.NewConsoleWriter()).Level(zerolog.DebugLevel)
	}

	switch transport {
	case "tls", "quic":
		var ca, cert, key []byte
		var err error
		if caFile != "" {
			if ca, err = os.ReadFile(caFile); err != nil {
				return nil, errors.Wrap(err, "read ca")
			}
		}
		if certFile != "" {
			if cert, err = os.ReadFile(certFile); err != nil {
				return nil, errors.Wrap(err, "read cert")
			}
			if key, err = os.ReadFile(keyFile); err != nil {
				return nil, errors.Wrap(err, "read key")
			}
		}
		connector, err := network.NewTLSClient(serverName, cert, key, ca)
		if err != nil {
			return nil, err
		}
		if transport == "quic" {
			return kv.DialQUIC(ctx, addr, connector, kv.WithClientLogger(log))
		}
		return kv.Dial(ctx, addr, kv.WithConnector(connector), kv.WithClientLogger(log))
	case "noise":
		psk, err := os.ReadFile(pskFile)
		if err != nil {
			return nil, errors.Wrap(err, "read psk")
		}
		connector, err := network.NewNoiseClient(psk)
		if err != nil {
			return nil, err
		}
		return kv.Dial(ctx, addr, kv.WithConnector(connector), kv.WithClientLogger(log))
	default:
		return nil, errors.Newf("unknown transport %q", transport)
	}
}

func oneShot(use string, arity int, build func(args []string) *pb.CommandRequest) *cobra.Command {
	return &cobra.Command{
		Use:  use,
		Args: cobra.ExactArgs(arity),
		RunE: func(cc *cobra.Command, args []string) error {
			client, err := dial(cc.Context())
			if err != nil {
				return err
			}
			defer client.Close()
			resp, err := client.Execute(cc.Context(), build(args))
			if err != nil {
				return err
			}
			printResponse(resp)
			return nil
		},
	}
}

func publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:  "publish <topic> <value>...",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cc *cobra.Command, args []string) error {
			client, err := dial(cc.Context())
			if err != nil {
				return err
			}
			defer client.Close()
			values := make([]*pb.Value, 0, len(args)-1)
			for _, arg := range args[1:] {
				values = append(values, pb.StringValue(arg))
			}
			return client.Publish(cc.Context(), args[0], values...)
		},
	}
}

func subscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:  "subscribe <topic>",
		Args: cobra.ExactArgs(1),
		RunE: func(cc *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cc.Context(), os.Interrupt)
			defer stop()

			client, err := dial(ctx)
			if err != nil {
				return err
			}
			defer client.Close()
			stream, err := client.Subscribe(ctx, args[0])
			if err != nil {
				return err
			}
			defer stream.Close()
			fmt.Printf("subscribed with id %d\n", stream.ID)

			done := make(chan error, 1)
			go func() {
				for {
					resp, err := stream.Recv()
					if err != nil {
						if errors.Is(err, io.EOF) {
							done <- nil
						} else {
							done <- err
						}
						return
					}
					printResponse(resp)
				}
			}()
			select {
			case <-ctx.Done():
				return nil
			case err := <-done:
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
		},
	}
}

func unsubscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:  "unsubscribe <topic> <id>",
		Args: cobra.ExactArgs(2),
		RunE: func(cc *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return errors.Wrap(err, "parse id")
			}
			client, err := dial(cc.Context())
			if err != nil {
				return err
			}
			defer client.Close()
			resp, err := client.Unsubscribe(cc.Context(), args[0], uint32(id))
			if err != nil {
				return err
			}
			printResponse(resp)
			return nil
		},
	}
}

func printResponse(resp *pb.CommandResponse) {
	fmt.Printf("status: %d", resp.Status)
	if resp.Message != "" {
		fmt.Printf(" message: %s", resp.Message)
	}
	fmt.Println()
	for _, v := range resp.Values {
		fmt.Println(v.String())
	}
	for _, p := range resp.Pairs {
		fmt.Printf("%s = %s\n", p.Key, p.Value.String())
	}
}
