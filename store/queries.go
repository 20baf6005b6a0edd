package store

const (
	queryListProducts = `SELECT id, category, name, price, stock, origin FROM products ORDER BY category, name`
	queryUnitPrice    = `SELECT id, category, name, price, stock, origin FROM products WHERE id = $1`

	queryCartLines = `
		SELECT cl.product_id, p.name, cl.quantity, p.price
		FROM cart_lines cl
		JOIN products p ON p.id = cl.product_id
		WHERE cl.customer_id = $1
		ORDER BY p.name DESC, p.id
	`
	queryLockProductStock = `SELECT stock FROM products WHERE id = $1 FOR UPDATE`
	queryCartQuantity     = `SELECT quantity FROM cart_lines WHERE customer_id = $1 AND product_id = $2`
	queryUpsertCartLine   = `
		INSERT INTO cart_lines (customer_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (customer_id, product_id)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity
	`
	queryDeleteCartLine     = `DELETE FROM cart_lines WHERE customer_id = $1 AND product_id = $2`
	queryUpdateCartQuantity = `UPDATE cart_lines SET quantity = $3 WHERE customer_id = $1 AND product_id = $2`
	queryClearCart          = `DELETE FROM cart_lines WHERE customer_id = $1`

	queryAccount        = `SELECT id, login_id, password_hash, nickname, balance, total_charge, grade FROM customers WHERE id = $1`
	queryAccountByLogin = `SELECT id, login_id, password_hash, nickname, balance, total_charge, grade FROM customers WHERE login_id = $1`
	queryLockAccount    = `SELECT id, login_id, password_hash, nickname, balance, total_charge, grade FROM customers WHERE id = $1 FOR UPDATE`
	queryChargeAccount  = `UPDATE customers SET balance = $2, total_charge = $3, grade = $4 WHERE id = $1`

	queryLockBalance       = `SELECT balance FROM customers WHERE id = $1 FOR UPDATE`
	queryLockPurchaseLines = `
		SELECT product_id, quantity
		FROM cart_lines
		WHERE customer_id = $1 AND product_id = ANY($2)
		ORDER BY product_id
		FOR UPDATE
	`
	queryDebitBalance         = `UPDATE customers SET balance = balance - $2 WHERE id = $1 AND balance >= $2 RETURNING balance`
	queryDeletePurchasedLines = `DELETE FROM cart_lines WHERE customer_id = $1 AND product_id = ANY($2)`
)
