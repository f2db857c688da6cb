package handlers

import "net/http"

// PageHandler serves the single-page web chat. The page talks to POST
// /api/v1/chat by default, or to the relay socket with ?transport=relay.
type PageHandler struct{}

func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(chatPage))
}

const chatPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Chat</title>
<style>
  body { margin: 0; font-family: system-ui, sans-serif; background: #f4f4f5; }
  #chat { max-width: 720px; margin: 0 auto; height: 100vh; display: flex; flex-direction: column; }
  #log { flex: 1; overflow-y: auto; padding: 16px; }
  .msg { max-width: 80%; margin: 6px 0; padding: 8px 12px; border-radius: 12px; line-height: 1.4; word-wrap: break-word; }
  .user { margin-left: auto; background: #2563eb; color: #fff; white-space: pre-wrap; }
  .ai { margin-right: auto; background: #fff; border: 1px solid #e4e4e7; }
  .ai p { margin: 0 0 6px; }
  .typing { color: #71717a; font-style: italic; }
  form { display: flex; gap: 8px; padding: 12px 16px; border-top: 1px solid #e4e4e7; background: #fff; }
  input { flex: 1; padding: 10px; border: 1px solid #d4d4d8; border-radius: 8px; font-size: 15px; }
  button { padding: 10px 16px; border: 0; border-radius: 8px; background: #2563eb; color: #fff; font-size: 15px; }
  button:disabled, input:disabled { opacity: 0.6; }
</style>
</head>
<body>
<div id="chat">
  <div id="log"></div>
  <form id="form">
    <input id="input" autocomplete="off" placeholder="Type a message...">
    <button id="send" type="submit">Send</button>
  </form>
</div>
<script>
(function () {
  var log = document.getElementById("log");
  var form = document.getElementById("form");
  var input = document.getElementById("input");
  var send = document.getElementById("send");
  var pending = false;
  var typing = null;

  function scrollToEnd() { log.scrollTop = log.scrollHeight; }

  function append(sender, text, html) {
    var div = document.createElement("div");
    div.className = "msg " + sender;
    if (html) { div.innerHTML = html; } else { div.textContent = text; }
    log.appendChild(div);
    scrollToEnd();
  }

  function setPending(on) {
    pending = on;
    input.disabled = on;
    send.disabled = on;
    send.textContent = on ? "Sending..." : "Send";
    if (on && !typing) {
      typing = document.createElement("div");
      typing.className = "msg ai typing";
      typing.textContent = "🤖 Typing...";
      log.appendChild(typing);
    } else if (!on && typing) {
      typing.remove();
      typing = null;
      input.focus();
    }
    scrollToEnd();
  }

  function receive(text, html) {
    setPending(false);
    append("ai", text, html);
  }

  var transport;
  if (new URLSearchParams(location.search).get("transport") === "relay") {
    var scheme = location.protocol === "https:" ? "wss://" : "ws://";
    var socket = new WebSocket(scheme + location.host + "/api/v1/ws");
    socket.onopen = function () { console.log("connected to relay"); };
    socket.onclose = function () { console.log("disconnected from relay"); };
    socket.onmessage = function (e) {
      var ev = JSON.parse(e.data);
      if (ev.event === "message") { receive(ev.data); }
    };
    window.addEventListener("beforeunload", function () { socket.close(); });
    transport = function (text) {
      if (socket.readyState !== WebSocket.OPEN) { throw new Error("relay not connected"); }
      socket.send(JSON.stringify({ event: "message", data: text }));
    };
  } else {
    transport = function (text) {
      fetch("/api/v1/chat", {
        method: "POST",
        headers: { "Content-Type": "application/json" },
        body: JSON.stringify({ message: text })
      }).then(function (res) {
        if (!res.ok) { throw new Error("HTTP " + res.status); }
        return res.json();
      }).then(function (body) {
        receive(body.reply, body.html);
      }).catch(function (err) {
        console.error(err);
        receive("⚠️ Failed to fetch AI response.");
      });
    };
  }

  form.addEventListener("submit", function (e) {
    e.preventDefault();
    var text = input.value;
    if (pending || text.trim() === "") { return; }
    append("user", text);
    input.value = "";
    setPending(true);
    try {
      transport(text);
    } catch (err) {
      console.error(err);
      receive("⚠️ Failed to fetch AI response.");
    }
  });

  input.focus();
})();
</script>
</body>
</html>
`
