package http

const landingPage = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>zkLogin</title></head>
<body>
<pre id="out">Waiting for identity token...</pre>
<script>
const out = document.getElementById("out");
const show = (v) => { out.textContent = JSON.stringify(v, null, 2); };
const fragment = window.location.hash.slice(1);
if (fragment) {
  history.replaceState(null, "", window.location.pathname);
  fetch("/callback", {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify({fragment: fragment}),
  }).then((r) => r.json()).then(show).catch((e) => { out.textContent = String(e); });
} else {
  fetch("/session").then((r) => r.json()).then(show);
}
</script>
</body>
</html>
`
