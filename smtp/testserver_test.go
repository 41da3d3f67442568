package smtp

import (
	"bufio"
	"net"
	"strings"
)

// scriptedServer drives one side of a net.Pipe, replying to each line the
// client sends with the next canned response block. A response block may
// contain several "\r\n"-joined lines (for multiline EHLO banners).
func scriptedServer(server net.Conn, script []string) {
	r := bufio.NewReader(server)
	for _, resp := range script {
		if resp == "" {
			continue
		}
		if strings.HasPrefix(resp, ">") {
			// ">" entries are sent unprompted (the initial greeting).
			server.Write([]byte(resp[1:]))
			continue
		}
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
		if _, err := server.Write([]byte(resp)); err != nil {
			return
		}
	}
}

func pipeClient(script []string) (*Client, net.Conn) {
	clientConn, serverConn := net.Pipe()
	go scriptedServer(serverConn, script)
	c := &Client{opts: Options{Host: "mail.example.test"}, ext: map[string]string{}}
	c.conn = clientConn
	c.text = newTextConn(clientConn)
	return c, serverConn
}
