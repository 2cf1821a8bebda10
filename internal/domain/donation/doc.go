// Package donation holds the fundraising domain: tournées, the support
// transactions recorded on them, card checkouts and donation intents awaiting
// provider confirmation, and the receipts issued to donors.
//
// Fiscal classification (fiscal vs soutien) and the tax reduction are computed
// by the database. The types here only carry those values back.
package donation
