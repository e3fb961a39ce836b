// Copies stdin to a peer and the peer's stream to stdout over a reliable
// UDP connection.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/anacrolix/tagflag"
	reliable "github.com/netsys-lab/reliable/api"
	"github.com/netsys-lab/reliable/controlplane"
	"github.com/netsys-lab/reliable/utils"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var flags = struct {
	Server  bool          `help:"wait for the peer instead of connecting to it"`
	Local   string        `help:"local address to bind"`
	Remote  string        `help:"peer address, ignored with -server"`
	Timeout time.Duration `help:"retransmission timeout"`
	Debug   bool          `help:"log every segment"`
	InFile  string        `help:"read the outgoing stream from this file instead of stdin"`
	OutFile string        `help:"write the incoming stream to this file instead of stdout"`
}{
	Local:   "127.0.0.1:6000",
	Remote:  "127.0.0.1:6001",
	Timeout: controlplane.DEFAULT_TIMEOUT,
}

func Check(e error) {
	if e != nil {
		log.Fatalf("Fatal error. Exiting: %v", e)
	}
}

func main() {
	if err := mainErr(); err != nil {
		log.Errorf("error in main: %v", err)
		os.Exit(1)
	}
}

func mainErr() error {
	tagflag.Parse(&flags)

	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if flags.Debug {
		log.SetLevel(log.DebugLevel)
	}

	var src io.Reader = os.Stdin
	if flags.InFile != "" {
		f, err := os.Open(flags.InFile)
		Check(err)
		defer f.Close()
		src = f
	}

	var dst io.Writer = os.Stdout
	if flags.OutFile != "" {
		f, err := os.Create(flags.OutFile)
		Check(err)
		defer f.Close()
		dst = f
	}

	cfg := controlplane.DefaultConfig()
	cfg.Timeout = flags.Timeout
	cfg.TickInterval = flags.Timeout / controlplane.TICKS_PER_TIMEOUT

	var conn *reliable.Conn
	var err error
	if flags.Server {
		conn, err = reliable.Listen(flags.Local, src, dst, cfg)
	} else {
		conn, err = reliable.Dial(flags.Local, flags.Remote, src, dst, cfg)
	}
	if err != nil {
		return errors.Wrap(err, "open connection")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	if err := conn.Run(ctx); err != nil {
		return errors.Wrap(err, "transfer")
	}

	m := conn.Metrics()
	log.Infof("Sent %s in %d packets (%d retransmits), delivered %s in %s",
		utils.ByteCountSI(int64(m.TxBytes)), m.TxPackets, m.Retransmits,
		utils.ByteCountSI(int64(m.DeliveredBytes)), time.Since(start))
	return nil
}
