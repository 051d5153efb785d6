package sqlinline

// QWorkerClaimFeed claims the oldest processing layout. A claim older than
// ten minutes is considered abandoned and may be taken again.
const QWorkerClaimFeed = `--sql 03cfdb9a-1303-487f-a204-1bc5e9a7ef63
with next_feed as (
    select id
    from feed_layouts
    where status = 'processing'
      and (claimed_at is null or claimed_at < now() - interval '10 minutes')
    order by created_at asc
    for update skip locked
    limit 1
),
claimed as (
    update feed_layouts
    set claimed_at = now(), updated_at = now()
    where id in (select id from next_feed)
    returning id, user_id, feed_style, fashion_style, template_key, status, custom_settings, locale, error_message, created_at, updated_at
)
select
    id::text,
    user_id::text,
    feed_style,
    coalesce(fashion_style, ''),
    coalesce(template_key, ''),
    status,
    custom_settings,
    coalesce(locale, ''),
    coalesce(error_message, ''),
    created_at,
    updated_at
from claimed;
`
