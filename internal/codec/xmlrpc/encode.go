package xmlrpc

import (
	"bytes"
	"strconv"
	"strings"
)

const xmlHeader = `<?xml version="1.0"?>`

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape applies XML text escaping. Ampersands are replaced before the other
// entities so existing entity text is not double escaped by later passes.
func Escape(s string) string {
	return textEscaper.Replace(s)
}

// EncodeCall serializes a method call envelope.
func EncodeCall(method string, params ...Value) []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString("<methodCall><methodName>")
	buf.WriteString(method)
	buf.WriteString("</methodName><params>")
	for _, p := range params {
		buf.WriteString("<param>")
		writeValue(&buf, p)
		buf.WriteString("</param>")
	}
	buf.WriteString("</params></methodCall>")
	return buf.Bytes()
}

// EncodeResponse serializes a successful methodResponse carrying v.
func EncodeResponse(v Value) []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString("<methodResponse><params><param>")
	writeValue(&buf, v)
	buf.WriteString("</param></params></methodResponse>")
	return buf.Bytes()
}

// EncodeFault serializes a fault methodResponse.
func EncodeFault(f *Fault) []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString("<methodResponse><fault>")
	writeValue(&buf, Struct(map[string]Value{
		"faultCode":   Int(f.Code),
		"faultString": Text(f.Message),
	}))
	buf.WriteString("</fault></methodResponse>")
	return buf.Bytes()
}

// EncodeValue serializes a single value including its <value> wrapper.
func EncodeValue(v Value) string {
	var buf bytes.Buffer
	writeValue(&buf, v)
	return buf.String()
}

func writeValue(buf *bytes.Buffer, v Value) {
	buf.WriteString("<value>")
	switch v.kind {
	case KindNil:
		buf.WriteString("<boolean>0</boolean>")
	case KindBool:
		if v.b {
			buf.WriteString("<boolean>1</boolean>")
		} else {
			buf.WriteString("<boolean>0</boolean>")
		}
	case KindInt:
		buf.WriteString("<int>")
		buf.WriteString(strconv.FormatInt(v.i, 10))
		buf.WriteString("</int>")
	case KindDouble:
		buf.WriteString("<double>")
		buf.WriteString(formatDouble(v.f))
		buf.WriteString("</double>")
	case KindText:
		buf.WriteString("<string>")
		buf.WriteString(Escape(v.s))
		buf.WriteString("</string>")
	case KindList:
		buf.WriteString("<array><data>")
		for _, item := range v.list {
			writeValue(buf, item)
		}
		buf.WriteString("</data></array>")
	case KindStruct:
		buf.WriteString("<struct>")
		for _, k := range v.Keys() {
			buf.WriteString("<member><name>")
			buf.WriteString(k)
			buf.WriteString("</name>")
			writeValue(buf, v.members[k])
			buf.WriteString("</member>")
		}
		buf.WriteString("</struct>")
	}
	buf.WriteString("</value>")
}

func formatDouble(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
