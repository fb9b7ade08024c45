package cart

// Merge combines the remote cart with the locally cached one. Remote lines
// come first, in store order. A product present on both sides keeps the
// larger quantity; local-only products are appended.
func Merge(remote []RemoteLine, local []Line) []Line {
	merged := make([]Line, 0, len(remote)+len(local))
	index := make(map[string]int, len(remote)+len(local))

	for _, r := range remote {
		if !validLine(r.ProductID, r.Quantity) {
			continue
		}
		p := Product{ProductID: r.ProductID}
		if r.Product != nil {
			p = *r.Product
			p.ProductID = r.ProductID
		}
		if i, ok := index[r.ProductID]; ok {
			merged[i].Quantity = max(merged[i].Quantity, r.Quantity)
			continue
		}
		index[r.ProductID] = len(merged)
		merged = append(merged, Line{Product: p, Quantity: r.Quantity})
	}

	for _, l := range local {
		if !validLine(l.ProductID, l.Quantity) {
			continue
		}
		if i, ok := index[l.ProductID]; ok {
			merged[i].Quantity = max(merged[i].Quantity, l.Quantity)
			if merged[i].Name == "" {
				// product row is gone remotely; keep the cached snapshot
				merged[i].Product = l.Product
			}
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged
}

// normalize drops lines that cannot be in a cart and folds duplicate products
// into one line, capped at MaxQuantity.
func normalize(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		if !validLine(l.ProductID, l.Quantity) {
			continue
		}
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity = min(out[i].Quantity+l.Quantity, MaxQuantity)
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

func validLine(productID string, quantity int) bool {
	return productID != "" && quantity >= 1 && quantity <= MaxQuantity
}
