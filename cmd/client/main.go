package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/DesCaldnd/Crypota/internal/config"
	"github.com/DesCaldnd/Crypota/internal/domain"
	"github.com/DesCaldnd/Crypota/internal/fileutil"
	"github.com/DesCaldnd/Crypota/internal/infrastructure/kafka"
	natsrpc "github.com/DesCaldnd/Crypota/internal/infrastructure/nats"
	"github.com/DesCaldnd/Crypota/internal/service"
)

const usage = `usage: client encrypt|decrypt -in <path> -out <path> [-remote]
       client encrypt|decrypt -in <path> -queue

Encrypts or decrypts a file with the cipher described by the YAML file in
CONFIG_PATH. With -remote the work is sent to a server over NATS. With -queue
the file is published to the Kafka request topic and the server posts the
result on the reply topic under the logged request ID.
`

func init() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("Error loading .env file", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// remoteCodec adapts the NATS client to fileutil.Codec.
type remoteCodec struct {
	client *natsrpc.Client
}

func (r remoteCodec) EncryptMessage(ctx context.Context, data []byte) ([]byte, error) {
	return r.client.Encrypt(ctx, data)
}

func (r remoteCodec) DecryptMessage(ctx context.Context, data []byte) ([]byte, error) {
	return r.client.Decrypt(ctx, data)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	command := os.Args[1]
	flags := flag.NewFlagSet(command, flag.ExitOnError)
	input := flags.String("in", "", "input file")
	output := flags.String("out", "", "output file")
	remote := flags.Bool("remote", false, "process on a server over NATS")
	queue := flags.Bool("queue", false, "publish the request to Kafka")
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = flags.Parse(os.Args[2:])

	if *input == "" || (*output == "" && !*queue) {
		flags.Usage()
		os.Exit(2)
	}

	var err error
	if *queue {
		err = submit(command, *input)
	} else {
		err = run(command, *input, *output, *remote)
	}
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(command, input, output string, remote bool) error {
	cfg, err := config.MustLoadConfig()
	if err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var codec fileutil.Codec
	if remote {
		conn, err := natsrpc.Connect(cfg.NATS.URL, logger)
		if err != nil {
			return err
		}
		defer conn.Close()

		codec = remoteCodec{client: natsrpc.NewClient(conn, cfg.NATS.SubjectPrefix)}

		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.NATS.RequestTimeout)
		defer cancel()
	} else {
		cipherContext, err := service.NewCipherContext(cfg.Cipher, logger)
		if err != nil {
			return err
		}
		codec = cipherContext
	}

	switch command {
	case "encrypt":
		err = fileutil.EncryptFile(ctx, codec, input, output)
	case "decrypt":
		err = fileutil.DecryptFile(ctx, codec, input, output)
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
	if err != nil {
		return err
	}

	logger.Info("done", slog.String("command", command), slog.String("output", output))
	return nil
}

// submit publishes the file contents as one cipher request without waiting
// for the reply.
func submit(command, input string) error {
	var op domain.Operation
	switch command {
	case "encrypt":
		op = domain.OperationEncrypt
	case "decrypt":
		op = domain.OperationDecrypt
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}

	cfg, err := config.MustLoadConfig()
	if err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}

	data, err := fileutil.ReadFile(input)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.RequestTopic)
	defer producer.Close()

	req := domain.NewCipherRequest(op, data)
	if err := producer.SendRequest(ctx, req); err != nil {
		return err
	}

	logger.Info("request queued",
		slog.String("request_id", req.RequestID),
		slog.String("topic", cfg.Kafka.RequestTopic),
		slog.String("reply_topic", cfg.Kafka.ReplyTopic))
	return nil
}
