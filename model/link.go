package model

import "strings"

const DefaultContentGateway = "https://ipfs.io/ipfs"

// ContentLink turns a content identifier into a link resolvable through gateway
func ContentLink(gateway, cid string) string {
	if gateway == "" {
		gateway = DefaultContentGateway
	}

	return strings.TrimSuffix(gateway, "/") + "/" + cid
}
