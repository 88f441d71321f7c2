package model

// WatchTarget identifies one (address, chain) pair whose watch registration
// may need to be released.
type WatchTarget struct {
	Address string
	Chain   string
}
