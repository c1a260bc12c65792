package cdpcontrol

import (
	"encoding/json"
	"strings"
)

// jsVideoProbe reads the main player element of a watch page. The host check
// catches tabs that navigated away between listing and probing.
func jsVideoProbe(hostFilter string) string {
	return wrapJSEval(`
var want = ` + jsString(strings.ToLower(hostFilter)) + `;
var host = String(location.hostname).toLowerCase();
if (want && host !== want && host.slice(-(want.length + 1)) !== "." + want) {
  return JSON.stringify({ok:false,error_code:"` + CodeNotVideoPage + `",error_message:"tab left " + want});
}
var video = document.querySelector("video.html5-main-video");
if (!video) {
  return JSON.stringify({ok:false,error_code:"` + CodeNoMedia + `",error_message:"no html5-main-video element"});
}
var d = video.duration;
if (!(d > 0) || !isFinite(d)) {
  return JSON.stringify({ok:false,error_code:"` + CodeInvalidDuration + `",error_message:"duration " + String(d)});
}
var heading = document.querySelector("#title > h1 > yt-formatted-string");
var title = heading && heading.textContent ? heading.textContent.trim() : "";
if (!title) { title = String(document.title || "").replace(/ - YouTube$/, "").trim(); }
return JSON.stringify({ok:true,data:{duration_seconds:d,title:title}});`)
}

type videoProbeData struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Title           string  `json:"title"`
}

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// wrapJSEval turns a function body into an expression that always yields an
// evaluation envelope, even when the body throws.
func wrapJSEval(body string) string {
	return "(function(){\ntry {\n" + body + `
} catch (err) {
return JSON.stringify({ok:false,error_code:"` + CodeEvalFailure + `",error_message:String(err && err.message || err)});
}
})()`
}
