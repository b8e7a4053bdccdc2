// Package discovery finds NodeLink nodes on the local network via
// mDNS/DNS-SD. Nodes advertise "_nodelink._tcp" with TXT records
// describing their identity; the browser aggregates announcements
// from multiple interfaces into one service entry per instance.
package discovery
