package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// TXT record keys advertised by nodes.
const (
	TXTKeyName    = "name"
	TXTKeyMAC     = "mac"
	TXTKeyVersion = "version"
)

// NodeTXT is the decoded TXT record set of a node announcement.
type NodeTXT struct {
	Name       string
	MACAddress string
	Version    string
}

// EncodeNodeTXT builds the TXT key/value map for an announcement.
func EncodeNodeTXT(info *NodeTXT) map[string]string {
	txt := make(map[string]string, 3)
	if info.Name != "" {
		txt[TXTKeyName] = info.Name
	}
	if info.MACAddress != "" {
		txt[TXTKeyMAC] = info.MACAddress
	}
	if info.Version != "" {
		txt[TXTKeyVersion] = info.Version
	}
	return txt
}

// DecodeNodeTXT extracts node identity from TXT records. The mac key
// is required; the rest is optional.
func DecodeNodeTXT(txt map[string]string) (*NodeTXT, error) {
	mac, ok := txt[TXTKeyMAC]
	if !ok || mac == "" {
		return nil, fmt.Errorf("missing %q TXT record", TXTKeyMAC)
	}
	return &NodeTXT{
		Name:       txt[TXTKeyName],
		MACAddress: mac,
		Version:    txt[TXTKeyVersion],
	}, nil
}

// StringsToTXTRecords parses "key=value" strings into a map. Entries
// without '=' become keys with empty values.
func StringsToTXTRecords(strs []string) map[string]string {
	txt := make(map[string]string, len(strs))
	for _, s := range strs {
		key, value, _ := strings.Cut(s, "=")
		txt[key] = value
	}
	return txt
}

// TXTRecordsToStrings renders a TXT map as sorted "key=value" strings.
func TXTRecordsToStrings(txt map[string]string) []string {
	strs := make([]string, 0, len(txt))
	for key, value := range txt {
		strs = append(strs, key+"="+value)
	}
	sort.Strings(strs)
	return strs
}
