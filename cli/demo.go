/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package cli wires the quicio driver into a Cobra command line, mainly
// a "demo" subcommand that runs a loopback client/server pair for manual
// smoke testing.
package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/fatih/color"
	colorable "github.com/mattn/go-colorable"
	"github.com/spf13/cobra"

	"github.com/nabbar/quicio"
	"github.com/nabbar/quicio/proto"
	"github.com/nabbar/quicio/transport"
)

// Out is where demo output is written; tests substitute an in-memory
// buffer so no output touches the real terminal.
var Out io.Writer = colorable.NewColorableStdout()

var (
	okColor  = color.New(color.FgGreen, color.Bold)
	errColor = color.New(color.FgRed, color.Bold)
)

// NewDemoCommand builds the "demo" subcommand: it binds a server
// endpoint and a client endpoint on loopback UDP sockets using the
// reference protocol engine, exchanges one datagram, and reports the
// result.
func NewDemoCommand() *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a loopback client/server endpoint pair for manual smoke testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), duration)
			defer cancel()
			return runDemo(ctx)
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 2*time.Second, "how long to run the demo before shutting down")
	return cmd
}

func runDemo(ctx context.Context) error {
	serverSock, serverAddr, err := listenLoopback()
	if err != nil {
		return fail("listen server socket", err)
	}
	clientSock, _, err := listenLoopback()
	if err != nil {
		return fail("listen client socket", err)
	}

	serverEngine := proto.NewRefEngine(0)
	clientEngine := proto.NewRefEngine(0)

	server := quicio.Server(serverSock, serverEngine, false, &proto.ServerConfig{})
	client := quicio.Client(clientSock, clientEngine, false)
	client.SetDefaultClientConfig(&proto.ClientConfig{})

	defer server.Release()
	defer client.Release()

	go func() { _ = server.Run(ctx) }()
	go func() { _ = client.Run(ctx) }()

	if _, err := client.Connect(serverAddr, "demo"); err != nil {
		return fail("client connect", err)
	}

	// The reference engine emits no packet on Connect, so send the first
	// datagram to the server by hand.
	if _, err := clientSock.SendBatch(ctx, []proto.Transmit{{Dest: serverAddr, Payload: []byte("hello")}}); err != nil {
		return fail("client send", err)
	}

	accepted, err := server.Accept(ctx)
	if err != nil {
		return fail("server accept", err)
	}

	ok(fmt.Sprintf("server accepted connection %x", accepted.Handle))
	return nil
}

func listenLoopback() (transport.Socket, net.Addr, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return nil, nil, err
	}
	sock, err := transport.New(conn)
	if err != nil {
		return nil, nil, err
	}
	return sock, conn.LocalAddr(), nil
}

func ok(msg string) {
	_, _ = okColor.Fprintln(Out, msg)
}

func fail(step string, err error) error {
	_, _ = errColor.Fprintf(Out, "%s: %v\n", step, err)
	return err
}
