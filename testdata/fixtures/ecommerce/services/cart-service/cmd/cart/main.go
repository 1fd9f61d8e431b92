package main

import (
	"fmt"
	"os"

	"ecommerce/cart-service/internal/cart"
)

func main() {
	store := cart.NewMemoryStore()
	svc := cart.NewService(store)

	if err := svc.AddItem("cart-1", "sku-001", 2); err != nil {
		fmt.Fprintf(os.Stderr, "add item: %v\n", err)
		os.Exit(1)
	}
}
