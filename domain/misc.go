package domain

// Table is the name of a mongo collection
type Table string

const (
	TableAuctions    Table = "auctions"
	TableBids        Table = "bids"
	TableBidCounters Table = "bid_counters"
	TableAccounts    Table = "accounts"
	TableListings    Table = "listings"
)

// UserId identifies an account. Issued by the identity collaborator.
type UserId string

// AuctionId identifies an auction
type AuctionId string

// ListingId identifies an item listing
type ListingId string

// Role is the coarse authorization level carried by an account
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)
