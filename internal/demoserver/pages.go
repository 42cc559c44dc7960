package demoserver

// PageVersion is one variant of a demo page.
type PageVersion struct {
	HTML        string
	ContentType string
}

// PageDefinition is a demo page with its variants. Version 1 carries dark
// patterns; version 2 is the cleaned-up rendition of the same page, so a
// scan-fix-rescan diff shows detections resolving.
type PageDefinition struct {
	Path        string
	Description string
	Versions    map[int]PageVersion
}

// GetAllPages returns the built-in demo pages.
func GetAllPages() []PageDefinition {
	return []PageDefinition{
		{
			Path:        "/checkout",
			Description: "Checkout with hidden fees, a preselected add-on and a countdown",
			Versions: map[int]PageVersion{
				1: {HTML: checkoutDarkHTML},
				2: {HTML: checkoutCleanHTML},
			},
		},
		{
			Path:        "/newsletter",
			Description: "Newsletter popup with confirmshaming decline copy",
			Versions: map[int]PageVersion{
				1: {HTML: newsletterDarkHTML},
				2: {HTML: newsletterCleanHTML},
			},
		},
		{
			Path:        "/sale",
			Description: "Sale listing with fake scarcity, live-activity claims and a disguised ad",
			Versions: map[int]PageVersion{
				1: {HTML: saleDarkHTML},
				2: {HTML: saleCleanHTML},
			},
		},
		{
			Path:        "/account",
			Description: "Subscription page that hides the cancel path",
			Versions: map[int]PageVersion{
				1: {HTML: accountDarkHTML},
				2: {HTML: accountCleanHTML},
			},
		},
	}
}

const checkoutDarkHTML = `<!DOCTYPE html>
<html>
<head><title>Checkout</title></head>
<body>
  <h1>Checkout</h1>
  <div class="timer" style="position: fixed; top: 0; left: 0; z-index: 1500;">
    Offer expires in 04:59! Order in the next 5 minutes or lose your cart.
  </div>
  <form action="/order" method="post">
    <p>Subtotal: $49.00</p>
    <p style="font-size: 8px; color: #cccccc; background-color: #ffffff;">
      Additional processing fee of $12.99 will be charged at billing.
    </p>
    <label>
      <input type="checkbox" name="protection-plan" checked>
      Add Premium Protection Plan ($9.99/month, renews automatically)
    </label>
    <input type="hidden" name="upsell" value="protection-plan">
    <button type="submit" class="buy-now">Complete purchase</button>
  </form>
</body>
</html>`

const checkoutCleanHTML = `<!DOCTYPE html>
<html>
<head><title>Checkout</title></head>
<body>
  <h1>Checkout</h1>
  <form action="/order" method="post">
    <p>Subtotal: $49.00</p>
    <p>Processing fee: $12.99</p>
    <p>Total: $61.99</p>
    <label>
      <input type="checkbox" name="protection-plan">
      Add Protection Plan ($9.99/month, cancel anytime)
    </label>
    <button type="submit" class="buy-now">Complete purchase</button>
  </form>
</body>
</html>`

const newsletterDarkHTML = `<!DOCTYPE html>
<html>
<head><title>Welcome</title></head>
<body>
  <h1>Our Store</h1>
  <p>Browse the catalog below.</p>
  <div class="modal autoshow" style="position: fixed; top: 20%; left: 20%; z-index: 2000;">
    <h2>Don't miss out!</h2>
    <p>Join our newsletter for exclusive deals.</p>
    <button class="accept">Yes, I want to save money</button>
    <a href="/close" style="opacity: 0.25; font-size: 9px;">No thanks, I hate saving money</a>
  </div>
</body>
</html>`

const newsletterCleanHTML = `<!DOCTYPE html>
<html>
<head><title>Welcome</title></head>
<body>
  <h1>Our Store</h1>
  <p>Browse the catalog below.</p>
  <section>
    <h2>Newsletter</h2>
    <p>Join our newsletter for deals.</p>
    <button class="accept">Subscribe</button>
    <a href="/close">Not now</a>
  </section>
</body>
</html>`

const saleDarkHTML = `<!DOCTYPE html>
<html>
<head><title>Flash Sale</title></head>
<body>
  <h1>Flash Sale</h1>
  <p class="stock">Hurry! Only 2 left in stock at this price!</p>
  <p class="activity">17 people are viewing this right now. 8 sold in the last hour.</p>
  <div class="sponsored-content" style="border: none;">
    <h3>Editor's pick: UltraWidget Pro</h3>
    <p>The widget everyone is talking about.</p>
  </div>
  <button class="add-to-cart">Add to cart</button>
</body>
</html>`

const saleCleanHTML = `<!DOCTYPE html>
<html>
<head><title>Sale</title></head>
<body>
  <h1>Sale</h1>
  <p class="stock">In stock.</p>
  <div class="ad" style="border: 1px solid #999;">
    <p>Advertisement</p>
    <h3>UltraWidget Pro</h3>
  </div>
  <button class="add-to-cart">Add to cart</button>
</body>
</html>`

const accountDarkHTML = `<!DOCTYPE html>
<html>
<head><title>Your Account</title></head>
<body>
  <h1>Your Account</h1>
  <p>Plan: Premium ($19.99/month)</p>
  <p>Your free trial converts to a paid subscription automatically.</p>
  <button class="upgrade" style="font-size: 20px;">Upgrade plan</button>
  <p style="font-size: 8px;">
    To cancel your subscription, call us on weekdays between 9 and 11 AM
    and speak to a retention specialist.
  </p>
</body>
</html>`

const accountCleanHTML = `<!DOCTYPE html>
<html>
<head><title>Your Account</title></head>
<body>
  <h1>Your Account</h1>
  <p>Plan: Premium ($19.99/month)</p>
  <button class="upgrade">Upgrade plan</button>
  <button class="cancel">Cancel subscription</button>
</body>
</html>`
