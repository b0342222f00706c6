// Package harness runs scripted storefront sessions against a fully wired
// app and checks the outcome.
//
// Each scenario gets fresh in-memory device and backend databases, a mock
// clock and sequential session ids ("session-1", "session-2", ...), so its
// trace is byte-stable and can be compared against a golden file. The app
// settles after every step: pending loads finish, queued remote writes are
// attempted and forced sign-outs complete.
//
// # Scenario Format
//
//	name: favorites_follow_sign_in
//	description: "Favorites move to the backend after sign-in"
//	products:
//	  - { id: p1, name: Shirt, price: 1999 }
//	steps:
//	  - action: auth.sign_in
//	    args: { user: u1 }
//	  - action: favorites.toggle
//	    args: { product: p1 }
//	assertions:
//	  - type: favorites
//	    ids: [p1]
//	    source: remote
//	  - type: remote_favorites
//	    user: u1
//	    ids: [p1]
//
// # Actions
//
//   - cart.add: product, optional quantity (default 1), size, color
//   - cart.remove, favorites.toggle: product
//   - cart.update_quantity: product, quantity
//   - cart.clear, auth.sign_out, activity.check, backend.heal: no args
//   - auth.sign_in, auth.update_user: user
//   - activity.observe: kind (pointerdown, keydown, scroll, touchstart, click)
//   - clock.advance: duration; then runs the periodic inactivity check
//   - backend.fail: op (select_by_ids, select_where, insert, delete_where
//     or all), optional times (default: until backend.heal)
//   - app.restart: optional unreachable, which fails the initial identity
//     check of the new app
//
// # Assertion Types
//
//   - cart: items and/or subtotal of the final cart
//   - cart_line: product with optional size, color and quantity
//     (quantity 0 asserts the line is absent)
//   - favorites: visible ids in order and/or source (loading, local, remote)
//   - remote_favorites: ids stored on the backend for user
//   - identity: final user; omit user to assert anonymous
//   - notice: message and/or severity, optional exact count
//   - device: key present or absent in device storage
package harness
