package orders

func reasonAssigned(skin string) string    { return "Order assigned: " + skin }
func reasonRefunded(skin string) string    { return "Order refunded: " + skin }
func reasonTransferOut(skin string) string { return "Order reassigned (out): " + skin }
func reasonTransferIn(skin string) string  { return "Order reassigned (in): " + skin }
func reasonDeleted(skin string) string     { return "Order deleted: " + skin }
