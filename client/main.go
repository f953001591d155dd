package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"chatd/protocol"
)

// Тонкий строчный клиент: команды с префиксом / отображаются на типы
// кадров протокола один в один. Вся отрисовка - обычный stdout.
func main() {
	serverAddr := flag.String("server", "localhost:8888", "chatd server address (host:port)")
	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Printf("Connected to %s. Type /help for commands.\n", *serverAddr)

	done := make(chan struct{})
	go readLoop(conn, done)

	var username string
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		frame, echo, quit := parseCommand(line, username)
		if quit {
			break
		}
		if frame == nil {
			continue
		}

		data, err := frame.Encode()
		if err != nil {
			if err == protocol.ErrFieldTooLong {
				fmt.Println("Message or name too long.")
			} else {
				fmt.Printf("Error: %v\n", err)
			}
			continue
		}

		if _, err := conn.Write(data); err != nil {
			fmt.Printf("Connection lost: %v\n", err)
			break
		}

		// Сервер свое сообщение не возвращает - эхо делаем сами
		if echo != "" {
			fmt.Println(echo)
		}
		if frame.Type == protocol.TypeLogin {
			username = frame.Source
		}
		if frame.Type == protocol.TypeLogout {
			break
		}
	}

	conn.Close()
	<-done
}

func readLoop(conn net.Conn, done chan struct{}) {
	defer close(done)

	buf := make([]byte, protocol.FrameSize)
	for {
		if _, err := io.ReadFull(conn, buf); err != nil {
			fmt.Println("Disconnected from server.")
			return
		}

		f, err := protocol.Decode(buf)
		if err != nil {
			fmt.Printf("Protocol error: %v\n", err)
			return
		}

		printFrame(f)
	}
}

func printFrame(f *protocol.Frame) {
	switch f.Type {
	case protocol.TypeReceivePrivate:
		fmt.Printf("[%s] %s\n", f.Source, f.Body)
	case protocol.TypeReceiveGroup:
		fmt.Printf("[%s @ %s] %s\n", f.Source, f.Target, f.Body)
	case protocol.TypeOfflineMsg:
		fmt.Printf("[offline from %s] %s\n", f.Source, f.Body)
	case protocol.TypeOnlineList:
		fmt.Printf("* Online: %s\n", f.Body)
	case protocol.TypeFriendIncoming:
		fmt.Printf("* %s (/accept %s or /decline %s)\n", f.Body, f.Source, f.Source)
	case protocol.TypeFriendUpdate:
		if f.Source != "" && f.Source != "Server" {
			fmt.Printf("* %s %s\n", f.Source, f.Body)
		} else {
			fmt.Printf("* %s\n", f.Body)
		}
	case protocol.TypeFriendList, protocol.TypeGroupResponse, protocol.TypeGroupList:
		fmt.Printf("* %s\n", f.Body)
	case protocol.TypeRegisterOK, protocol.TypeRegisterFail,
		protocol.TypeLoginOK, protocol.TypeLoginFail:
		fmt.Printf("* %s\n", f.Body)
	case protocol.TypeError:
		fmt.Printf("! %s\n", f.Body)
	default:
		fmt.Printf("? unknown frame type %d\n", f.Type)
	}
}

// parseCommand разбирает строку пользователя в кадр. Возвращает кадр
// (nil - ничего не отправлять), локальное эхо и признак выхода.
func parseCommand(line, username string) (*protocol.Frame, string, bool) {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "/exit":
		return nil, "", true

	case "/help":
		fmt.Println(`Commands:
  /register <user> <password>    /login <user> <password>    /logout
  /msg <user> <text>             /gmsg <group> <text>
  /add <user>  /accept <user>  /decline <user>  /unfriend <user>  /friends
  /group_create <g>  /group_join <g>  /group_leave <g>
  /group_invite <user> <g>  /group_remove <user> <g>
  /group_list  /group_all  /exit`)
		return nil, "", false

	case "/register", "/login":
		if len(args) != 2 {
			fmt.Printf("Usage: %s <user> <password>\n", cmd)
			return nil, "", false
		}
		msgType := protocol.TypeRegister
		if cmd == "/login" {
			msgType = protocol.TypeLogin
		}
		return &protocol.Frame{Type: msgType, Source: args[0], Body: args[1]}, "", false

	case "/logout":
		return &protocol.Frame{Type: protocol.TypeLogout}, "Logged out.", false

	case "/msg":
		if len(args) < 2 {
			fmt.Println("Usage: /msg <user> <text>")
			return nil, "", false
		}
		text := strings.Join(args[1:], " ")
		echo := fmt.Sprintf("[%s -> %s] %s", username, args[0], text)
		return &protocol.Frame{Type: protocol.TypePrivateMsg, Target: args[0], Body: text}, echo, false

	case "/gmsg":
		if len(args) < 2 {
			fmt.Println("Usage: /gmsg <group> <text>")
			return nil, "", false
		}
		text := strings.Join(args[1:], " ")
		echo := fmt.Sprintf("[%s @ %s] %s", username, args[0], text)
		return &protocol.Frame{Type: protocol.TypeGroupMsg, Target: args[0], Body: text}, echo, false

	case "/add", "/accept", "/decline", "/unfriend":
		if len(args) != 1 {
			fmt.Printf("Usage: %s <user>\n", cmd)
			return nil, "", false
		}
		types := map[string]protocol.MsgType{
			"/add":      protocol.TypeFriendRequest,
			"/accept":   protocol.TypeFriendAccept,
			"/decline":  protocol.TypeFriendDecline,
			"/unfriend": protocol.TypeUnfriend,
		}
		return &protocol.Frame{Type: types[cmd], Target: args[0]}, "", false

	case "/friends":
		return &protocol.Frame{Type: protocol.TypeFriendListRequest}, "", false

	case "/group_create", "/group_join", "/group_leave":
		if len(args) != 1 {
			fmt.Printf("Usage: %s <group>\n", cmd)
			return nil, "", false
		}
		types := map[string]protocol.MsgType{
			"/group_create": protocol.TypeGroupCreate,
			"/group_join":   protocol.TypeGroupJoin,
			"/group_leave":  protocol.TypeGroupLeave,
		}
		return &protocol.Frame{Type: types[cmd], Target: args[0]}, "", false

	case "/group_invite", "/group_remove":
		if len(args) != 2 {
			fmt.Printf("Usage: %s <user> <group>\n", cmd)
			return nil, "", false
		}
		msgType := protocol.TypeGroupInvite
		if cmd == "/group_remove" {
			msgType = protocol.TypeGroupRemove
		}
		// Имя группы едет в теле кадра, как и на сервере
		return &protocol.Frame{Type: msgType, Target: args[0], Body: args[1]}, "", false

	case "/group_list":
		return &protocol.Frame{Type: protocol.TypeGroupListJoined}, "", false

	case "/group_all":
		return &protocol.Frame{Type: protocol.TypeGroupListAll}, "", false

	default:
		fmt.Println("Unknown command. Type /help.")
		return nil, "", false
	}
}
